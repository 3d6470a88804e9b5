package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/repositories"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o"
	jsonResponseType     = "json_object"
	maxErrorBodyBytes    = 4096
)

// OpenAIConfig holds configuration for the OpenAI vision adapter.
type OpenAIConfig struct {
	BaseURL         string // Optional: defaults to https://api.openai.com/v1
	Model           string // Optional: defaults to gpt-4o
	MaxOutputTokens int    // Optional: defaults to 2000
	TimeoutSeconds  int    // Optional: defaults to 60
}

// OpenAIVision implements VisionModel with the chat completions API.
type OpenAIVision struct {
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
	logger          *zap.Logger
}

var _ repositories.VisionModel = (*OpenAIVision)(nil)

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	MaxTokens      int               `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("openai: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewOpenAIVision creates a new OpenAI vision adapter
func NewOpenAIVision(config OpenAIConfig, logger *zap.Logger) (*OpenAIVision, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := config.Model
	if model == "" {
		model = defaultOpenAIModel
		logger.Info("Using default model", zap.String("model", model))
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &OpenAIVision{
		baseURL:         baseURL,
		model:           model,
		maxOutputTokens: maxOutputTokens,
		httpClient:      &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:          logger,
	}, nil
}

// Name implements repositories.VisionModel
func (o *OpenAIVision) Name() string {
	return "openai/" + o.model
}

// Generate implements repositories.VisionModel
func (o *OpenAIVision) Generate(ctx context.Context, req repositories.VisionRequest) (string, error) {
	if req.Credential == "" {
		return "", domain.Wrap(domain.ErrConfiguration, "openai generate", "OPENAI_API_KEY is not set", nil)
	}

	payload := chatCompletionRequest{
		Model:          o.model,
		ResponseFormat: map[string]string{"type": jsonResponseType},
		MaxTokens:      o.maxOutputTokens,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemInstruction},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: req.Image.DataURI()}},
			}},
		},
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := o.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)

	started := time.Now()
	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		o.logger.Error("Failed to execute HTTP request", zap.String("model", o.model), zap.Error(err))
		return "", domain.Wrap(domain.ErrTransport, "openai generate", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		o.logger.Error("OpenAI API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: string(errorBody)}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", domain.Wrap(domain.ErrConfiguration, "openai generate", "credential rejected", statusErr)
		}
		return "", domain.Wrap(domain.ErrTransport, "openai generate", "non-success status", statusErr)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", domain.Wrap(domain.ErrTransport, "openai generate", "failed to decode response", err)
	}

	o.logger.Info("OpenAI analysis completed",
		zap.String("model", o.model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("choices", len(completion.Choices)))

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
