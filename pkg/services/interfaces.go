// Package services contains business logic implementations.
package services

import (
	"context"
	"time"

	"github.com/TFMV/campaignqa/pkg/models"
)

// QueryExecutor runs an extracted statement against the dataset.
type QueryExecutor interface {
	// Execute never fails: execution errors are returned as an error result set.
	Execute(ctx context.Context, statement string) *models.ResultSet
}

// ResponseComposer turns a result set into a natural-language summary.
type ResponseComposer interface {
	Compose(ctx context.Context, question string, rs *models.ResultSet) (string, error)
}

// AdviceGenerator suggests improvements for a poorly performing subject line.
type AdviceGenerator interface {
	Suggest(ctx context.Context, subject string) (string, error)
}

// Assistant answers one question end to end.
type Assistant interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

// TextGenerator produces a completion for a system/user prompt pair.
type TextGenerator interface {
	Generate(ctx context.Context, req models.CompletionRequest) (string, error)
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() time.Duration
}
