// Package handlers serves user interactions on top of the services.
package handlers

import (
	"context"

	"github.com/TFMV/campaignqa/pkg/models"
)

// InteractionHandler handles one user interaction at a time.
type InteractionHandler interface {
	// Ask answers a question about the campaign dataset.
	Ask(ctx context.Context, question string) (*models.Answer, error)

	// Advise suggests improvements for a poorly performing subject line.
	Advise(ctx context.Context, subject string) (*models.Advice, error)
}

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines the metrics interface.
type MetricsCollector interface {
	IncrementCounter(name string, tags ...string)
	RecordHistogram(name string, value float64, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop()
}
