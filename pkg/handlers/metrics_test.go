package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/infrastructure/metrics"
	"github.com/TFMV/campaignqa/pkg/models"
)

// metricsAdapter adapts metrics.Collector to the MetricsCollector interface used in handlers.
type metricsAdapter struct {
	collector metrics.Collector
}

func newMetricsAdapter(c metrics.Collector) MetricsCollector {
	return &metricsAdapter{collector: c}
}

func (m *metricsAdapter) IncrementCounter(name string, labels ...string) {
	m.collector.IncrementCounter(name, labels...)
}

func (m *metricsAdapter) RecordHistogram(name string, value float64, labels ...string) {
	m.collector.RecordHistogram(name, value, labels...)
}

func (m *metricsAdapter) RecordGauge(name string, value float64, labels ...string) {
	m.collector.RecordGauge(name, value, labels...)
}

func (m *metricsAdapter) StartTimer(name string) Timer {
	return &metricsTimerAdapter{timer: m.collector.StartTimer(name)}
}

type metricsTimerAdapter struct {
	timer metrics.Timer
}

func (t *metricsTimerAdapter) Stop() {
	t.timer.Stop()
}

func TestInteractionHandler_PrometheusMetrics(t *testing.T) {
	collector := metrics.NewPrometheusCollector("test")

	calls := 0
	assistant := &mockAssistant{
		askFunc: func(ctx context.Context, question string) (*models.Answer, error) {
			calls++
			if calls == 1 {
				return &models.Answer{ID: "a1", Kind: models.AnswerKindDirect, Reply: "Use fewer words."}, nil
			}
			return nil, errors.ErrEmptyCompletion
		},
	}
	h := NewInteractionHandler(assistant, &mockAdvisor{}, &mockLogger{}, newMetricsAdapter(collector))

	_, err := h.Ask(context.Background(), "How do I improve clicks?")
	require.NoError(t, err)
	_, err = h.Ask(context.Background(), "And opens?")
	require.Error(t, err)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)

	got := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				got[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), got["test_handler_requests"])
	assert.Equal(t, float64(1), got["test_handler_errors"])
	assert.Contains(t, familyNames(families), "test_handler_ask_seconds")
}

func TestInteractionHandler_NoOpMetrics(t *testing.T) {
	advisor := &mockAdvisor{
		suggestFunc: func(ctx context.Context, subject string) (string, error) {
			return "1. a\n2. b\n3. c", nil
		},
	}
	h := NewInteractionHandler(&mockAssistant{}, advisor, &mockLogger{}, newMetricsAdapter(metrics.NewNoOpCollector()))

	advice, err := h.Advise(context.Background(), "Newsletter #12")
	require.NoError(t, err)
	assert.Equal(t, "1. a\n2. b\n3. c", advice.Suggestions)
}
