package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
)

// NoAnswerReply is returned when a result has nothing worth summarizing.
const NoAnswerReply = "Sorry, I couldn't find a meaningful answer to your question."

// SummaryRowLimit is the number of leading rows sent for summarization.
const SummaryRowLimit = 5

const summarizerSystemRole = "You convert SQL table output into human-friendly summaries."

// responseComposer implements ResponseComposer.
type responseComposer struct {
	generator TextGenerator
	logger    Logger
	metrics   MetricsCollector
}

// NewResponseComposer creates a response composer.
func NewResponseComposer(generator TextGenerator, logger Logger, metrics MetricsCollector) ResponseComposer {
	return &responseComposer{
		generator: generator,
		logger:    logger,
		metrics:   metrics,
	}
}

// Compose summarizes the first rows of rs as an answer to question.
func (c *responseComposer) Compose(ctx context.Context, question string, rs *models.ResultSet) (string, error) {
	if rs == nil || rs.IsEmpty() || rs.IsError() {
		c.metrics.IncrementCounter("summaries_skipped")
		return NoAnswerReply, nil
	}

	timer := c.metrics.StartTimer("summary_generation")
	defer timer.Stop()

	data, err := headJSON(rs, SummaryRowLimit)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to serialize result rows")
	}

	req := models.CompletionRequest{
		SystemRole: summarizerSystemRole,
		UserRole:   summaryPrompt(question, data),
	}

	c.logger.Debug("Requesting summary", "question", question, "rows", rs.NumRows())

	text, err := c.generator.Generate(ctx, req)
	if err != nil {
		c.metrics.IncrementCounter("summary_errors")
		c.logger.Error("Summary generation failed", "error", err)
		return "", generationError(err, "failed to summarize result")
	}

	return strings.TrimSpace(text), nil
}

func summaryPrompt(question, data string) string {
	return fmt.Sprintf("Summarize the following SQL result in response to the user's question: '%s'\n\nData: %s", question, data)
}

// headJSON renders at most n leading rows as newline-delimited JSON objects.
func headJSON(rs *models.ResultSet, n int) (string, error) {
	head := rs.Head(n)
	if head == nil {
		return "", nil
	}
	defer head.Release()

	var buf bytes.Buffer
	if err := array.RecordToJSON(head, &buf); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
