// Package generation talks to hosted text-generation services.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Provider defaults.
const (
	DefaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	DefaultOpenAIModel   = "llama3-70b-8192"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultTimeout       = 60 * time.Second
)

// TextGenerator produces a completion for a system/user prompt pair.
type TextGenerator interface {
	Generate(ctx context.Context, req models.CompletionRequest) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string        `mapstructure:"provider" yaml:"provider"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	Model    string        `mapstructure:"model" yaml:"model"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// New builds the generator for cfg.Provider.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (TextGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "text generation API key is not set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger = logger.With().Str("provider", cfg.Provider).Logger()

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, errors.New(errors.CodeConfigInvalid, fmt.Sprintf("unsupported provider: %s", cfg.Provider))
	}
}

// finish trims a completion and rejects empty text.
func finish(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.ErrEmptyCompletion
	}
	return text, nil
}
