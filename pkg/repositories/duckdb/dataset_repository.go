// Package duckdb provides the DuckDB-backed dataset repository.
package duckdb

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/infrastructure/converter"
	"github.com/TFMV/campaignqa/pkg/infrastructure/pool"
	"github.com/TFMV/campaignqa/pkg/models"
	"github.com/TFMV/campaignqa/pkg/repositories"
)

// datasetRepository implements repositories.DatasetRepository for DuckDB.
type datasetRepository struct {
	pool   pool.ConnectionPool
	reader *converter.RowReader
	logger zerolog.Logger

	mu      sync.RWMutex
	dataset *models.Dataset
}

// NewDatasetRepository creates a new DuckDB dataset repository.
func NewDatasetRepository(p pool.ConnectionPool, reader *converter.RowReader, logger zerolog.Logger) repositories.DatasetRepository {
	return &datasetRepository{
		pool:   p,
		reader: reader,
		logger: logger,
	}
}

// Load creates the campaign table from a CSV or Parquet file.
func (r *datasetRepository) Load(ctx context.Context, path string) (*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dataset != nil {
		return nil, errors.New(errors.CodeInvalidRequest, "dataset already loaded")
	}

	start := time.Now()
	r.logger.Info().Str("path", path).Msg("Loading dataset")

	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}

	stmt := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", models.CampaignTable, sourceExpr(path))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, errors.Wrapf(err, errors.CodeDatasetLoadFailed, "failed to load dataset from %s", path)
	}

	cols, err := repositories.DescribeTable(ctx, db, models.CampaignTable)
	if err != nil {
		return nil, err
	}
	if err := repositories.ValidateColumns(path, cols); err != nil {
		if _, dropErr := db.ExecContext(ctx, "DROP TABLE "+models.CampaignTable); dropErr != nil {
			r.logger.Warn().Err(dropErr).Msg("Failed to drop rejected dataset table")
		}
		return nil, err
	}

	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+models.CampaignTable).Scan(&count); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatasetLoadFailed, "failed to count dataset rows")
	}

	r.dataset = &models.Dataset{
		Table:    models.CampaignTable,
		Path:     path,
		Engine:   pool.DriverDuckDB,
		Rows:     count,
		Columns:  cols,
		LoadedAt: time.Now(),
		LoadTime: time.Since(start),
	}

	r.logger.Info().
		Int64("rows", count).
		Int("columns", len(cols)).
		Dur("load_time", r.dataset.LoadTime).
		Msg("Dataset loaded")

	return r.dataset, nil
}

// Dataset returns the loaded dataset description.
func (r *datasetRepository) Dataset() (*models.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.dataset == nil {
		return nil, errors.ErrDatasetNotLoaded
	}
	return r.dataset, nil
}

// Columns describes the campaign table.
func (r *datasetRepository) Columns(ctx context.Context) ([]models.Column, error) {
	if _, err := r.Dataset(); err != nil {
		return nil, err
	}
	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}
	return repositories.DescribeTable(ctx, db, models.CampaignTable)
}

// Query executes a statement against the loaded dataset.
func (r *datasetRepository) Query(ctx context.Context, statement string) (*converter.Result, error) {
	return repositories.RunQuery(ctx, r.pool, r.reader, statement, r.logger)
}

func (r *datasetRepository) Dialect() string {
	return "DuckDB"
}

// sourceExpr picks the table function for the file extension.
func sourceExpr(path string) string {
	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return fmt.Sprintf("read_parquet(%s)", quoted)
	default:
		return fmt.Sprintf("read_csv_auto(%s, header = true)", quoted)
	}
}
