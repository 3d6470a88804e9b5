package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/repositories"
)

const (
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultMaxOutputTokens = 2000
	defaultTimeoutSeconds  = 60
)

// GeminiConfig holds configuration for the Gemini vision adapter.
// The API key is not part of it: it arrives with every request.
type GeminiConfig struct {
	Model           string // Optional: defaults to gemini-2.0-flash
	BaseURL         string // Optional: overrides the API endpoint
	MaxOutputTokens int    // Optional: defaults to 2000
	TimeoutSeconds  int    // Optional: defaults to 60
}

// GeminiVision implements VisionModel using Google's Gemini API
type GeminiVision struct {
	model           string
	baseURL         string
	maxOutputTokens int
	timeout         time.Duration
	logger          *zap.Logger
}

var _ repositories.VisionModel = (*GeminiVision)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewGeminiVision creates a new Gemini vision adapter
func NewGeminiVision(config GeminiConfig, logger *zap.Logger) (*GeminiVision, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
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

	return &GeminiVision{
		model:           model,
		baseURL:         strings.TrimSpace(config.BaseURL),
		maxOutputTokens: maxOutputTokens,
		timeout:         time.Duration(timeoutSeconds) * time.Second,
		logger:          logger,
	}, nil
}

// Name implements repositories.VisionModel
func (g *GeminiVision) Name() string {
	return "gemini/" + g.model
}

// Generate implements repositories.VisionModel
func (g *GeminiVision) Generate(ctx context.Context, req repositories.VisionRequest) (string, error) {
	if req.Credential == "" {
		return "", domain.Wrap(domain.ErrConfiguration, "gemini generate", "GEMINI_API_KEY is not set", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	clientConfig := &genai.ClientConfig{
		APIKey:  req.Credential,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return "", domain.Wrap(domain.ErrConfiguration, "gemini generate", "failed to create Gemini client", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisResultSchema(),
		MaxOutputTokens:   int32(g.maxOutputTokens),
	}

	started := time.Now()
	response, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("Gemini request failed", zap.String("model", g.model), zap.Error(err))
		return "", domain.Wrap(domain.ErrTransport, "gemini generate", "request failed", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		g.logger.Warn("No candidates returned from Gemini")
		return "", nil
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	g.logger.Info("Gemini analysis completed",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("responseBytes", text.Len()))

	return text.String(), nil
}

// analysisResultSchema mirrors the JSON shape fixed by the system instruction.
func analysisResultSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	num := &genai.Schema{Type: genai.TypeNumber}
	category := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"label": str, "text": str},
		Required:   []string{"label", "text"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":   str,
			"summary": str,
			"radarData": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"leadership":    num,
					"communication": num,
					"logical":       num,
					"creative":      num,
					"empathy":       num,
				},
				Required: []string{"leadership", "communication", "logical", "creative", "empathy"},
			},
			"categories": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"nature":   category,
					"love":     category,
					"money":    category,
					"relation": category,
					"life":     category,
				},
				Required: []string{"nature", "love", "money", "relation", "life"},
			},
			"detectedLines": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"lifeLine":  str,
					"headLine":  str,
					"heartLine": str,
				},
				Required: []string{"lifeLine", "headLine", "heartLine"},
			},
		},
		Required: []string{"title", "summary", "radarData", "categories", "detectedLines"},
	}
}
