package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/campaignqa/pkg/infrastructure/converter"
	"github.com/TFMV/campaignqa/pkg/models"
)

// mockLogger implements Logger
type mockLogger struct {
	debugFunc func(msg string, keysAndValues ...interface{})
	infoFunc  func(msg string, keysAndValues ...interface{})
	warnFunc  func(msg string, keysAndValues ...interface{})
	errorFunc func(msg string, keysAndValues ...interface{})
}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {
	if m.debugFunc != nil {
		m.debugFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	if m.infoFunc != nil {
		m.infoFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	if m.warnFunc != nil {
		m.warnFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	if m.errorFunc != nil {
		m.errorFunc(msg, keysAndValues...)
	}
}

// mockMetricsCollector implements MetricsCollector
type mockMetricsCollector struct {
	incrementCounterFunc func(name string, labels ...string)
	recordHistogramFunc  func(name string, value float64, labels ...string)
	recordGaugeFunc      func(name string, value float64, labels ...string)
	startTimerFunc       func(name string) Timer
}

func (m *mockMetricsCollector) IncrementCounter(name string, labels ...string) {
	if m.incrementCounterFunc != nil {
		m.incrementCounterFunc(name, labels...)
	}
}

func (m *mockMetricsCollector) RecordHistogram(name string, value float64, labels ...string) {
	if m.recordHistogramFunc != nil {
		m.recordHistogramFunc(name, value, labels...)
	}
}

func (m *mockMetricsCollector) RecordGauge(name string, value float64, labels ...string) {
	if m.recordGaugeFunc != nil {
		m.recordGaugeFunc(name, value, labels...)
	}
}

func (m *mockMetricsCollector) StartTimer(name string) Timer {
	if m.startTimerFunc != nil {
		return m.startTimerFunc(name)
	}
	return &mockTimer{}
}

// mockTimer implements Timer
type mockTimer struct{}

func (m *mockTimer) Stop() time.Duration {
	return 0
}

// mockTextGenerator implements TextGenerator and records every request.
type mockTextGenerator struct {
	mu           sync.Mutex
	requests     []models.CompletionRequest
	generateFunc func(ctx context.Context, req models.CompletionRequest) (string, error)
}

func (m *mockTextGenerator) Generate(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.generateFunc(ctx, req)
}

func (m *mockTextGenerator) calls() []models.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CompletionRequest(nil), m.requests...)
}

// mockDatasetRepo implements repositories.DatasetRepository
type mockDatasetRepo struct {
	loadFunc    func(ctx context.Context, path string) (*models.Dataset, error)
	datasetFunc func() (*models.Dataset, error)
	columnsFunc func(ctx context.Context) ([]models.Column, error)
	queryFunc   func(ctx context.Context, statement string) (*converter.Result, error)
	queries     int
}

func (m *mockDatasetRepo) Load(ctx context.Context, path string) (*models.Dataset, error) {
	return m.loadFunc(ctx, path)
}

func (m *mockDatasetRepo) Dataset() (*models.Dataset, error) {
	return m.datasetFunc()
}

func (m *mockDatasetRepo) Columns(ctx context.Context) ([]models.Column, error) {
	return m.columnsFunc(ctx)
}

func (m *mockDatasetRepo) Query(ctx context.Context, statement string) (*converter.Result, error) {
	m.queries++
	return m.queryFunc(ctx, statement)
}

func (m *mockDatasetRepo) Dialect() string {
	return "DuckDB"
}

// mockQueryExecutor implements QueryExecutor
type mockQueryExecutor struct {
	executeFunc func(ctx context.Context, statement string) *models.ResultSet
}

func (m *mockQueryExecutor) Execute(ctx context.Context, statement string) *models.ResultSet {
	return m.executeFunc(ctx, statement)
}

// mockResponseComposer implements ResponseComposer
type mockResponseComposer struct {
	composeFunc func(ctx context.Context, question string, rs *models.ResultSet) (string, error)
	composed    int
}

func (m *mockResponseComposer) Compose(ctx context.Context, question string, rs *models.ResultSet) (string, error) {
	m.composed++
	return m.composeFunc(ctx, question, rs)
}

// subjectRecord builds a (subject_line, open_rate) record with n rows.
func subjectRecord(alloc memory.Allocator, n int) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "subject_line", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "open_rate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(alloc, schema)
	defer b.Release()

	subjects := b.Field(0).(*array.StringBuilder)
	rates := b.Field(1).(*array.Float64Builder)
	for i := 0; i < n; i++ {
		subjects.Append(fmt.Sprintf("Subject %d", i))
		rates.Append(float64(i) / 100)
	}
	return b.NewRecord()
}

// subjectResult wraps subjectRecord in a converter result.
func subjectResult(alloc memory.Allocator, n int) *converter.Result {
	return &converter.Result{
		Record:  subjectRecord(alloc, n),
		Columns: []string{"subject_line", "open_rate"},
	}
}
