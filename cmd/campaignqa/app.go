package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TFMV/campaignqa/cmd/campaignqa/config"
	"github.com/TFMV/campaignqa/pkg/cache"
	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/generation"
	"github.com/TFMV/campaignqa/pkg/handlers"
	"github.com/TFMV/campaignqa/pkg/infrastructure/converter"
	"github.com/TFMV/campaignqa/pkg/infrastructure/memory"
	"github.com/TFMV/campaignqa/pkg/infrastructure/metrics"
	"github.com/TFMV/campaignqa/pkg/infrastructure/pool"
	"github.com/TFMV/campaignqa/pkg/models"
	"github.com/TFMV/campaignqa/pkg/repositories"
	"github.com/TFMV/campaignqa/pkg/repositories/duckdb"
	"github.com/TFMV/campaignqa/pkg/repositories/sqlite"
	"github.com/TFMV/campaignqa/pkg/services"
)

// app owns every long-lived component of one CLI invocation.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	pool      pool.ConnectionPool
	repo      repositories.DatasetRepository
	cache     cache.Cache
	dataset   *models.Dataset
	handler   handlers.InteractionHandler
	allocator *memory.TrackedAllocator

	group  *errgroup.Group
	cancel context.CancelFunc
}

// newApp loads the dataset and wires the pipeline. gen replaces the
// configured text-generation provider when non-nil.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, gen services.TextGenerator) (a *app, err error) {
	if strings.TrimSpace(cfg.Dataset) == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "no dataset given: pass --dataset or set CAMPAIGNQA_DATASET")
	}

	gctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(gctx)
	a = &app{
		cfg:    cfg,
		logger: logger,
		group:  group,
		cancel: cancel,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	collector := a.startMetrics(gctx)

	a.pool, err = pool.New(cfg.PoolConfig(), logger.With().Str("component", "pool").Logger())
	if err != nil {
		return nil, err
	}

	allocator := memory.NewTrackedAllocator(nil)
	a.allocator = allocator
	reader := converter.NewRowReader(allocator, cfg.MaxRows, logger.With().Str("component", "row_reader").Logger())
	repoLogger := logger.With().Str("component", "dataset_repository").Logger()
	switch cfg.Engine {
	case pool.DriverSQLite:
		a.repo = sqlite.NewDatasetRepository(a.pool, reader, repoLogger)
	default:
		a.repo = duckdb.NewDatasetRepository(a.pool, reader, repoLogger)
	}

	a.dataset, err = a.repo.Load(ctx, cfg.Dataset)
	if err != nil {
		return nil, err
	}

	if gen == nil {
		gen, err = generation.New(ctx, cfg.Generation, logger.With().Str("component", "generation").Logger())
		if err != nil {
			return nil, err
		}
	}

	if cfg.Cache.Enabled {
		a.cache = cache.NewMemoryCache(cache.DefaultConfig().WithMaxSize(cfg.Cache.MaxSize).WithTTL(cfg.Cache.TTL))
	}

	svcMetrics := &serviceMetricsAdapter{collector: collector}
	executor := services.NewQueryExecutor(a.repo, a.cache, allocator,
		newLoggerAdapter(logger, "query_executor"), svcMetrics, cfg.QueryTimeout)
	composer := services.NewResponseComposer(gen, newLoggerAdapter(logger, "response_composer"), svcMetrics)
	assistant := services.NewAssistant(gen, executor, composer, a.repo.Dialect(),
		newLoggerAdapter(logger, "assistant"), svcMetrics)
	advisor := services.NewAdviceGenerator(gen, newLoggerAdapter(logger, "advice_generator"), svcMetrics)

	a.handler = handlers.NewInteractionHandler(assistant, advisor,
		newLoggerAdapter(logger, "interaction_handler"),
		&handlerMetricsAdapter{collector: collector})

	logger.Info().
		Str("dataset", a.dataset.Path).
		Str("engine", a.dataset.Engine).
		Int64("rows", a.dataset.Rows).
		Dur("load_time", a.dataset.LoadTime).
		Str("provider", cfg.Generation.Provider).
		Bool("cache", a.cache != nil).
		Msg("Dataset loaded")

	return a, nil
}

// startMetrics returns the collector to use and, when metrics are enabled,
// serves it until the app's context ends.
func (a *app) startMetrics(ctx context.Context) metrics.Collector {
	if !a.cfg.Metrics.Enabled {
		return metrics.NewNoOpCollector()
	}

	collector := metrics.NewPrometheusCollector(a.cfg.Metrics.Namespace)
	server := metrics.NewMetricsServer(a.cfg.Metrics.Address, a.cfg.Metrics.Path, collector)

	a.group.Go(func() error {
		a.logger.Info().Str("address", a.cfg.Metrics.Address).Msg("Starting metrics server")
		if err := server.Start(); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	a.group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return collector
}

// Close stops background work and releases the cache and the pool.
func (a *app) Close() error {
	a.cancel()
	err := a.group.Wait()
	if err != nil {
		a.logger.Error().Err(err).Msg("Background task failed")
	}

	if a.cache != nil {
		stats := a.cache.Stats()
		a.logger.Debug().
			Uint64("hits", stats.Hits).
			Uint64("misses", stats.Misses).
			Int("entries", a.cache.Len()).
			Msg("Result cache stats")
		if cerr := a.cache.Close(); cerr != nil {
			a.logger.Error().Err(cerr).Msg("Error closing cache")
		}
	}

	if a.allocator != nil {
		stats := a.allocator.Stats()
		a.logger.Debug().
			Int64("bytes_in_use", stats.BytesInUse).
			Int64("peak_bytes", stats.PeakBytes).
			Int64("allocations", stats.Allocations).
			Msg("Arrow memory")
	}

	if a.pool != nil {
		if perr := a.pool.Close(); perr != nil {
			a.logger.Error().Err(perr).Msg("Error closing connection pool")
		}
	}

	a.logger.Debug().Msg("Shutdown complete")
	return err
}
