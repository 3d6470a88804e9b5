package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/domain/repositories"
)

const (
	defaultTimeoutSeconds = 90
	maxResponseBytes      = 1 << 20
)

// Config holds configuration for the relay client.
type Config struct {
	BaseURL        string // Required: e.g. http://localhost:8787
	Token          string // Optional: bearer token when the relay is gated
	Multipart      bool   // Optional: send the image as a file upload
	TimeoutSeconds int    // Optional: defaults to 90
}

// Client is the Analysis Client. It talks to the relay and never sees the
// model credential.
type Client struct {
	baseURL    string
	token      string
	multipart  bool
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.PalmAnalyzer = (*Client)(nil)

type analyzeRequest struct {
	Image  string `json:"image"`
	Zodiac string `json:"zodiac"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Raw   string `json:"raw"`
}

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if strings.TrimSpace(config.BaseURL) == "" {
		return fmt.Errorf("relay base URL is required")
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewClient creates a new relay client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(config.BaseURL), "/"),
		token:      config.Token,
		multipart:  config.Multipart,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:     logger,
	}, nil
}

// Analyze implements repositories.PalmAnalyzer
func (c *Client) Analyze(ctx context.Context, image entities.EncodedImage, zodiac entities.ZodiacSign) (entities.AnalysisResult, error) {
	if err := image.Validate(); err != nil {
		return entities.AnalysisResult{}, err
	}

	var req *http.Request
	var err error
	if c.multipart {
		req, err = c.newMultipartRequest(ctx, image, zodiac)
	} else {
		req, err = c.newJSONRequest(ctx, image, zodiac)
	}
	if err != nil {
		return entities.AnalysisResult{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to reach relay", zap.String("url", req.URL.String()), zap.Error(err))
		return entities.AnalysisResult{}, domain.Wrap(domain.ErrTransport, "analyze", "relay unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return entities.AnalysisResult{}, domain.Wrap(domain.ErrTransport, "analyze", "failed to read response", err)
	}

	c.logger.Info("Relay responded",
		zap.Int("statusCode", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return entities.AnalysisResult{}, apiError(resp.StatusCode, body)
	}

	result, _, err := entities.DecodeAnalysisResult(string(body))
	if err != nil {
		return entities.AnalysisResult{}, &domain.FormatError{
			Message: "Relay returned an invalid result",
			Raw:     string(body),
			Err:     err,
		}
	}
	return result, nil
}

// Health checks that the relay is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Wrap(domain.ErrTransport, "health", "relay unreachable", err)
	}
	defer resp.Body.Close()

	var health struct {
		OK bool `json:"ok"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&health) != nil || !health.OK {
		return domain.Wrap(domain.ErrTransport, "health", fmt.Sprintf("relay unhealthy (%d)", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, image entities.EncodedImage, zodiac entities.ZodiacSign) (*http.Request, error) {
	payload, err := json.Marshal(analyzeRequest{Image: image.DataURI(), Zodiac: string(zodiac)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/palm/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) newMultipartRequest(ctx context.Context, image entities.EncodedImage, zodiac entities.ZodiacSign) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("zodiac", string(zodiac)); err != nil {
		return nil, fmt.Errorf("failed to write zodiac field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="palm"`)
	header.Set("Content-Type", image.MIMEType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, fmt.Errorf("failed to write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/palm/analyze-multipart", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

// apiError turns a relay error response into a tagged error whose message
// reads "API error (<status>): <error>".
func apiError(status int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)

	text := parsed.Error
	if text == "" {
		text = http.StatusText(status)
	}
	message := fmt.Sprintf("API error (%d): %s", status, text)

	marker := domain.MarkerForKind(parsed.Kind)
	if marker == nil {
		marker = markerForStatus(status)
	}
	if marker == domain.ErrUpstreamFormat {
		return &domain.FormatError{Message: message, Raw: parsed.Raw}
	}
	return domain.Wrap(marker, "", message, nil)
}

func markerForStatus(status int) error {
	switch {
	case status == http.StatusUnsupportedMediaType:
		return domain.ErrUnsupportedMedia
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrConfiguration
	case status >= 400 && status < 500:
		return domain.ErrValidation
	default:
		return domain.ErrTransport
	}
}
