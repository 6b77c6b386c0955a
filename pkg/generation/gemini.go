package generation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
)

// contentGenerator is the slice of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, cfg Config, logger zerolog.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "failed to create Gemini client")
	}
	return newGeminiClient(client.Models, cfg, logger), nil
}

func newGeminiClient(m contentGenerator, cfg Config, logger zerolog.Logger) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GeminiClient{
		models:  m,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Generate sends the user prompt with the system prompt as system instruction.
func (c *GeminiClient) Generate(ctx context.Context, req models.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	c.logger.Debug().Str("model", model).Msg("Requesting completion")

	var config *genai.GenerateContentConfig
	if req.SystemRole != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.SystemRole, genai.RoleUser),
		}
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(req.UserRole), config)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "completion request failed")
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New(errors.CodeGenerationFailed, "completion returned no candidates")
	}

	text, err := finish(resp.Text())
	if err != nil {
		return "", err
	}

	c.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("response_len", len(text)).
		Msg("Completion received")

	return text, nil
}
