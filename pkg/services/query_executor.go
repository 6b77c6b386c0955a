package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/campaignqa/pkg/cache"
	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
	"github.com/TFMV/campaignqa/pkg/repositories"
)

// Executor outcomes used as the "outcome" metric label.
const (
	outcomeOK     = "ok"
	outcomeCached = "cached"
	outcomeError  = "error"
)

// queryExecutor implements QueryExecutor.
type queryExecutor struct {
	repo       repositories.DatasetRepository
	cache      cache.Cache
	allocator  memory.Allocator
	logger     Logger
	metrics    MetricsCollector
	classifier *StatementClassifier
	timeout    time.Duration
}

// NewQueryExecutor creates a query executor. A nil cache disables caching and
// a zero timeout leaves the caller's context as the only deadline.
func NewQueryExecutor(
	repo repositories.DatasetRepository,
	c cache.Cache,
	allocator memory.Allocator,
	logger Logger,
	metrics MetricsCollector,
	timeout time.Duration,
) QueryExecutor {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	return &queryExecutor{
		repo:       repo,
		cache:      c,
		allocator:  allocator,
		logger:     logger,
		metrics:    metrics,
		classifier: NewStatementClassifier(),
		timeout:    timeout,
	}
}

// Execute runs statement and returns its rows, or a one-row error table.
func (e *queryExecutor) Execute(ctx context.Context, statement string) (rs *models.ResultSet) {
	timer := e.metrics.StartTimer("statement_execution")
	defer timer.Stop()

	info := e.classifier.Analyze(statement)
	stmtType := info.Type.String()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic during statement execution", "panic", fmt.Sprint(r), "statement", statement)
			e.metrics.IncrementCounter("statements_executed", "type", stmtType, "outcome", outcomeError)
			rs = models.NewErrorResult(e.allocator, statement,
				errors.New(errors.CodeInternal, fmt.Sprintf("statement execution panicked: %v", r)))
		}
	}()

	e.logger.Debug("Executing statement", "statement", statement, "type", stmtType)
	if !info.IsReadOnly {
		e.logger.Warn("Executing a statement that may modify the dataset",
			"statement", statement,
			"type", stmtType,
			"tables", fmt.Sprint(info.Tables))
	}

	// Statements that may modify the dataset always reach the engine.
	cacheable := e.cache != nil && info.IsReadOnly
	if e.cache != nil && !info.IsReadOnly {
		defer e.invalidateCache(ctx, statement)
	}

	key := cache.Key(statement)
	if cacheable {
		if rec, ok := e.cache.Get(ctx, key); ok {
			e.metrics.IncrementCounter("statements_executed", "type", stmtType, "outcome", outcomeCached)
			e.logger.Debug("Statement served from cache", "statement", statement, "rows", rec.NumRows())
			return &models.ResultSet{
				Statement: statement,
				Columns:   columnNames(rec.Schema().Fields()),
				Record:    rec,
				Cached:    true,
			}
		}
	}

	queryCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.repo.Query(queryCtx, statement)
	elapsed := time.Since(start)
	e.metrics.RecordHistogram("statement_duration_seconds", elapsed.Seconds(), "type", stmtType)

	if err != nil {
		e.metrics.IncrementCounter("statements_executed", "type", stmtType, "outcome", outcomeError)
		e.logger.Warn("Statement execution failed",
			"error", err,
			"statement", statement,
			"execution_time", elapsed)
		errRS := models.NewErrorResult(e.allocator, statement, driverCause(err))
		errRS.ExecutionTime = elapsed
		return errRS
	}

	e.metrics.IncrementCounter("statements_executed", "type", stmtType, "outcome", outcomeOK)
	e.metrics.RecordHistogram("statement_result_rows", float64(res.Record.NumRows()), "type", stmtType)

	// Truncated results are not cached.
	if cacheable && !res.Truncated {
		if err := e.cache.Put(ctx, key, res.Record); err != nil {
			e.logger.Warn("Failed to cache statement result", "error", err, "statement", statement)
		}
	}

	e.logger.Info("Statement executed",
		"statement", statement,
		"rows", res.Record.NumRows(),
		"truncated", res.Truncated,
		"execution_time", elapsed)

	return &models.ResultSet{
		Statement:     statement,
		Columns:       res.Columns,
		Record:        res.Record,
		Truncated:     res.Truncated,
		ExecutionTime: elapsed,
	}
}

// invalidateCache drops every cached result once a statement that may have
// changed the dataset has run.
func (e *queryExecutor) invalidateCache(ctx context.Context, statement string) {
	if n := e.cache.Len(); n > 0 {
		e.logger.Debug("Invalidating result cache", "statement", statement, "entries", n)
	}
	if err := e.cache.Clear(ctx); err != nil {
		e.logger.Warn("Failed to invalidate result cache", "error", err, "statement", statement)
	}
}

// driverCause unwraps an execution error to the engine's own message.
func driverCause(err error) error {
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		if coded.Code == errors.CodeExecutionFailed && coded.Cause != nil {
			return coded.Cause
		}
		return stderrors.New(coded.Message)
	}
	return err
}

func columnNames(fields []arrow.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
