package handlers

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
	"github.com/TFMV/campaignqa/pkg/services"
)

// interactionHandler implements InteractionHandler.
type interactionHandler struct {
	assistant services.Assistant
	advisor   services.AdviceGenerator
	logger    Logger
	metrics   MetricsCollector
}

// NewInteractionHandler creates a new interaction handler.
func NewInteractionHandler(
	assistant services.Assistant,
	advisor services.AdviceGenerator,
	logger Logger,
	metrics MetricsCollector,
) InteractionHandler {
	return &interactionHandler{
		assistant: assistant,
		advisor:   advisor,
		logger:    logger,
		metrics:   metrics,
	}
}

// Ask answers a question about the campaign dataset.
func (h *interactionHandler) Ask(ctx context.Context, question string) (answer *models.Answer, err error) {
	timer := h.metrics.StartTimer("handler_ask")
	defer timer.Stop()

	requestID := uuid.NewString()
	defer h.recoverPanic("ask", requestID, &err)

	h.logger.Debug("Handling question", "request_id", requestID, "question", truncate(question))

	start := time.Now()
	answer, err = h.assistant.Ask(ctx, question)
	if err != nil {
		h.recordError("ask", requestID, err)
		return nil, err
	}

	h.metrics.IncrementCounter("handler_requests", "method", "ask", "kind", string(answer.Kind))
	h.logger.Info("Question handled",
		"request_id", requestID,
		"answer_id", answer.ID,
		"kind", string(answer.Kind),
		"duration", time.Since(start))

	return answer, nil
}

// Advise suggests improvements for a poorly performing subject line.
func (h *interactionHandler) Advise(ctx context.Context, subject string) (advice *models.Advice, err error) {
	timer := h.metrics.StartTimer("handler_advise")
	defer timer.Stop()

	requestID := uuid.NewString()
	defer h.recoverPanic("advise", requestID, &err)

	subject = strings.TrimSpace(subject)
	if subject == "" {
		h.recordError("advise", requestID, errors.ErrEmptySubject)
		return nil, errors.ErrEmptySubject
	}

	h.logger.Debug("Handling advice request", "request_id", requestID, "subject", truncate(subject))

	start := time.Now()
	text, err := h.advisor.Suggest(ctx, subject)
	if err != nil {
		h.recordError("advise", requestID, err)
		return nil, err
	}

	advice = &models.Advice{
		ID:          requestID,
		Subject:     subject,
		Suggestions: text,
		Duration:    time.Since(start),
	}

	h.metrics.IncrementCounter("handler_requests", "method", "advise", "kind", "advice")
	h.logger.Info("Advice handled", "request_id", requestID, "duration", advice.Duration)

	return advice, nil
}

func (h *interactionHandler) recordError(method, requestID string, err error) {
	code := errors.GetCode(err)
	h.metrics.IncrementCounter("handler_errors", "method", method, "code", code)
	h.logger.Error("Interaction failed",
		"request_id", requestID,
		"method", method,
		"code", code,
		"error", err)
}

// recoverPanic turns a panic into an INTERNAL_ERROR result. It must be deferred.
func (h *interactionHandler) recoverPanic(method, requestID string, err *error) {
	r := recover()
	if r == nil {
		return
	}

	h.metrics.IncrementCounter("handler_errors", "method", method, "code", errors.CodeInternal)
	h.logger.Error("Panic recovered",
		"request_id", requestID,
		"method", method,
		"panic", fmt.Sprint(r),
		"stack", string(debug.Stack()))

	*err = errors.New(errors.CodeInternal, fmt.Sprintf("internal error while handling %s", method)).
		WithDetail("request_id", requestID)
}

func truncate(s string) string {
	const maxLen = 200
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
