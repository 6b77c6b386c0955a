package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/models"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOpenAIClient creates a client. Empty fields take the Groq defaults.
func NewOpenAIClient(cfg Config, logger zerolog.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Generate sends one system and one user message and returns the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, req models.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	start := time.Now()
	c.logger.Debug().
		Str("model", model).
		Int("system_len", len(req.SystemRole)).
		Int("user_len", len(req.UserRole)).
		Msg("Requesting completion")

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: string(models.RoleSystem), Content: req.SystemRole},
			{Role: string(models.RoleUser), Content: req.UserRole},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to marshal completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to create completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "completion request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "failed to read completion response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.CodeGenerationFailed,
			fmt.Sprintf("completion request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))).
			WithDetail("status", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "failed to parse completion response")
	}
	if parsed.Error != nil {
		return "", errors.New(errors.CodeGenerationFailed, "provider error: "+parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New(errors.CodeGenerationFailed, "completion returned no choices")
	}

	text, err := finish(parsed.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}

	c.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("response_len", len(text)).
		Msg("Completion received")

	return text, nil
}
