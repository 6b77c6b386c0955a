package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
)

const analystPromptTemplate = "You are a smart assistant. When asked a question that requires data analysis of the '%s' table, " +
	"respond ONLY with a valid and complete %s SQL query using columns: %s.\n\n" +
	"Important: Use float division for rates. For example, use SUM(emails_clicked) * 1.0 / SUM(emails_sent) instead of integer division. " +
	"Include SELECT and FROM and GROUP BY clauses where necessary. " +
	"If it's a general, creative, or open-ended question, respond in plain English. " +
	"Do not return SQL and explanation together."

// AnalystPrompt is the system role for the first generation call of a question.
func AnalystPrompt(dialect string) string {
	return fmt.Sprintf(analystPromptTemplate,
		models.CampaignTable, dialect, strings.Join(models.CampaignColumns, ", "))
}

// assistant implements Assistant.
type assistant struct {
	generator TextGenerator
	executor  QueryExecutor
	composer  ResponseComposer
	prompt    string
	logger    Logger
	metrics   MetricsCollector
}

// NewAssistant wires the question pipeline. dialect names the SQL dialect the
// generated statements must be written in.
func NewAssistant(
	generator TextGenerator,
	executor QueryExecutor,
	composer ResponseComposer,
	dialect string,
	logger Logger,
	metrics MetricsCollector,
) Assistant {
	return &assistant{
		generator: generator,
		executor:  executor,
		composer:  composer,
		prompt:    AnalystPrompt(dialect),
		logger:    logger,
		metrics:   metrics,
	}
}

// Ask answers question. A statement reply is executed and, when it returned
// rows, summarized; any other reply is passed through. The caller releases
// the answer's result set.
func (a *assistant) Ask(ctx context.Context, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.ErrEmptyQuestion
	}

	timer := a.metrics.StartTimer("question_answering")
	start := time.Now()

	answer := &models.Answer{
		ID:       uuid.New().String(),
		Question: question,
	}

	a.logger.Debug("Answering question", "id", answer.ID, "question", question)

	reply, err := a.generator.Generate(ctx, models.CompletionRequest{
		SystemRole: a.prompt,
		UserRole:   question,
	})
	if err != nil {
		timer.Stop()
		a.metrics.IncrementCounter("questions_answered", "kind", "failed")
		a.logger.Error("Query generation failed", "id", answer.ID, "error", err)
		return nil, generationError(err, "failed to generate a reply")
	}
	answer.Reply = strings.TrimSpace(reply)

	if !IsQuery(answer.Reply) {
		answer.Kind = models.AnswerKindDirect
		answer.Duration = time.Since(start)
		timer.Stop()
		a.metrics.IncrementCounter("questions_answered", "kind", string(answer.Kind))
		return answer, nil
	}

	answer.Kind = models.AnswerKindSQL
	ex := Analyze(answer.Reply)
	answer.Statement = ex.Statement
	answer.DroppedLines = ex.Dropped
	if len(ex.Dropped) > 0 {
		a.logger.Warn("Discarded lines while extracting statement",
			"id", answer.ID,
			"dropped", len(ex.Dropped),
			"lines", strings.Join(ex.Dropped, " | "))
	}

	answer.Result = a.executor.Execute(ctx, answer.Statement)

	// Error results are not empty: the composer answers them with the apology.
	if !answer.Result.IsEmpty() {
		summary, err := a.composer.Compose(ctx, question, answer.Result)
		if err != nil {
			timer.Stop()
			answer.Release()
			a.metrics.IncrementCounter("questions_answered", "kind", "failed")
			return nil, err
		}
		answer.Summary = summary
	}

	answer.Duration = time.Since(start)
	timer.Stop()
	a.metrics.IncrementCounter("questions_answered", "kind", string(answer.Kind))

	a.logger.Info("Question answered",
		"id", answer.ID,
		"statement", answer.Statement,
		"rows", answer.Result.NumRows(),
		"is_error", answer.Result.IsError(),
		"duration", answer.Duration)

	return answer, nil
}
