package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
)

const advisorSystemRole = "You improve poor email subject lines."

// adviceGenerator implements AdviceGenerator.
type adviceGenerator struct {
	generator TextGenerator
	logger    Logger
	metrics   MetricsCollector
}

// NewAdviceGenerator creates an advice generator.
func NewAdviceGenerator(generator TextGenerator, logger Logger, metrics MetricsCollector) AdviceGenerator {
	return &adviceGenerator{
		generator: generator,
		logger:    logger,
		metrics:   metrics,
	}
}

// Suggest asks for three improvements to a subject line with a low open rate.
// The reply is returned as generated; the number of suggestions is not checked.
func (a *adviceGenerator) Suggest(ctx context.Context, subject string) (string, error) {
	timer := a.metrics.StartTimer("advice_generation")
	defer timer.Stop()

	a.logger.Debug("Requesting subject line advice", "subject", subject)

	text, err := a.generator.Generate(ctx, models.CompletionRequest{
		SystemRole: advisorSystemRole,
		UserRole:   advicePrompt(subject),
	})
	if err != nil {
		a.metrics.IncrementCounter("advice_errors")
		a.logger.Error("Advice generation failed", "error", err, "subject", subject)
		return "", generationError(err, "failed to generate subject line advice")
	}

	a.metrics.IncrementCounter("advice_generated")
	return strings.TrimSpace(text), nil
}

func advicePrompt(subject string) string {
	return fmt.Sprintf("The following email subject line had a very low open rate (~5%%): '%s'.\n"+
		"Give 3 specific improvements to make it more engaging and improve open rate.", subject)
}

// generationError keeps an existing GENERATION_FAILED error and wraps anything else.
func generationError(err error, message string) error {
	if errors.IsGenerationFailure(err) {
		return err
	}
	return errors.Wrap(err, errors.CodeGenerationFailed, message)
}
