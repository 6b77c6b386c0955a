package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
)

func newTestComposer(gen *mockTextGenerator) ResponseComposer {
	return NewResponseComposer(gen, &mockLogger{}, &mockMetricsCollector{})
}

func TestResponseComposer_NothingToSummarize(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	gen := &mockTextGenerator{
		generateFunc: func(ctx context.Context, req models.CompletionRequest) (string, error) {
			t.Fatal("generator must not be called")
			return "", nil
		},
	}
	composer := newTestComposer(gen)

	empty := &models.ResultSet{Record: subjectRecord(alloc, 0), Columns: []string{"subject_line", "open_rate"}}
	defer empty.Release()
	failed := models.NewErrorResult(alloc, "SELECT nope;", fmt.Errorf("no such column: nope"))
	defer failed.Release()

	tests := []struct {
		name string
		rs   *models.ResultSet
	}{
		{"nil", nil},
		{"empty", empty},
		{"error", failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := composer.Compose(context.Background(), "Which subject line worked best?", tt.rs)
			require.NoError(t, err)
			assert.Equal(t, "Sorry, I couldn't find a meaningful answer to your question.", got)
		})
	}
	assert.Empty(t, gen.calls())
}

func TestResponseComposer_SendsAtMostFiveRows(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	gen := &mockTextGenerator{
		generateFunc: func(ctx context.Context, req models.CompletionRequest) (string, error) {
			return "  Subject 0 had the lowest open rate.\n", nil
		},
	}
	composer := newTestComposer(gen)

	rs := &models.ResultSet{Record: subjectRecord(alloc, 100), Columns: []string{"subject_line", "open_rate"}}
	defer rs.Release()

	got, err := composer.Compose(context.Background(), "Which subject line worked worst?", rs)
	require.NoError(t, err)
	assert.Equal(t, "Subject 0 had the lowest open rate.", got)

	calls := gen.calls()
	require.Len(t, calls, 1)
	req := calls[0]
	assert.Equal(t, "You convert SQL table output into human-friendly summaries.", req.SystemRole)

	prefix := "Summarize the following SQL result in response to the user's question: 'Which subject line worked worst?'\n\nData: "
	require.True(t, strings.HasPrefix(req.UserRole, prefix), req.UserRole)

	lines := strings.Split(strings.TrimPrefix(req.UserRole, prefix), "\n")
	require.Len(t, lines, SummaryRowLimit)
	for i, line := range lines {
		var row map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &row), line)
		assert.Equal(t, fmt.Sprintf("Subject %d", i), row["subject_line"])
	}
	assert.NotContains(t, req.UserRole, "Subject 5")
}

func TestResponseComposer_FewerRowsThanLimit(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	gen := &mockTextGenerator{
		generateFunc: func(ctx context.Context, req models.CompletionRequest) (string, error) {
			return "ok", nil
		},
	}
	rs := &models.ResultSet{Record: subjectRecord(alloc, 2), Columns: []string{"subject_line", "open_rate"}}
	defer rs.Release()

	_, err := newTestComposer(gen).Compose(context.Background(), "q", rs)
	require.NoError(t, err)

	data := gen.calls()[0].UserRole[strings.Index(gen.calls()[0].UserRole, "Data: ")+len("Data: "):]
	assert.Len(t, strings.Split(data, "\n"), 2)
}

func TestResponseComposer_GenerationFailure(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	gen := &mockTextGenerator{
		generateFunc: func(ctx context.Context, req models.CompletionRequest) (string, error) {
			return "", fmt.Errorf("connection reset by peer")
		},
	}
	rs := &models.ResultSet{Record: subjectRecord(alloc, 1), Columns: []string{"subject_line", "open_rate"}}
	defer rs.Release()

	got, err := newTestComposer(gen).Compose(context.Background(), "q", rs)
	assert.Empty(t, got)
	assert.True(t, errors.IsGenerationFailure(err))
}
