package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/adapters/llm"
	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/domain/repositories"
)

const defaultUpstreamTimeout = 60 * time.Second

// CredentialSource returns the external capability credential, or "" when it
// is not configured. It is consulted on every call.
type CredentialSource func() string

// EnvCredential reads the credential from the named environment variable.
func EnvCredential(name string) CredentialSource {
	return func() string {
		return strings.TrimSpace(os.Getenv(name))
	}
}

// PalmService is the relay core: it owns the only path to the external
// capability and turns its output into a validated AnalysisResult.
type PalmService struct {
	model          repositories.VisionModel
	credential     CredentialSource
	credentialName string
	timeout        time.Duration
	logger         *zap.Logger
}

var _ repositories.PalmAnalyzer = (*PalmService)(nil)

// NewPalmService creates a new relay service. credentialName is only used in
// error messages.
func NewPalmService(
	model repositories.VisionModel,
	credentialName string,
	credential CredentialSource,
	timeout time.Duration,
	logger *zap.Logger,
) *PalmService {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if credential == nil {
		credential = EnvCredential(credentialName)
	}
	return &PalmService{
		model:          model,
		credential:     credential,
		credentialName: credentialName,
		timeout:        timeout,
		logger:         logger,
	}
}

// AnalyzePayload serves the JSON route: image is a data URI or raw base64.
func (s *PalmService) AnalyzePayload(ctx context.Context, image, zodiac string) (entities.AnalysisResult, error) {
	credential, err := s.requireCredential()
	if err != nil {
		return entities.AnalysisResult{}, err
	}

	if strings.TrimSpace(image) == "" || strings.TrimSpace(zodiac) == "" {
		return entities.AnalysisResult{}, domain.Wrap(domain.ErrValidation, "", "Missing required fields: image, zodiac", nil)
	}
	sign, err := parseSign(zodiac)
	if err != nil {
		return entities.AnalysisResult{}, err
	}
	img, err := entities.ParseImagePayload(image)
	if err != nil {
		return entities.AnalysisResult{}, err
	}

	return s.analyze(ctx, credential, img, sign)
}

// AnalyzeUpload serves the multipart route. data is nil when no file was sent.
func (s *PalmService) AnalyzeUpload(ctx context.Context, data []byte, mimeType, zodiac string) (entities.AnalysisResult, error) {
	credential, err := s.requireCredential()
	if err != nil {
		return entities.AnalysisResult{}, err
	}

	if strings.TrimSpace(zodiac) == "" {
		return entities.AnalysisResult{}, domain.Wrap(domain.ErrValidation, "", "Missing required field: zodiac", nil)
	}
	if data == nil {
		return entities.AnalysisResult{}, domain.Wrap(domain.ErrValidation, "", "Missing required file: image", nil)
	}
	sign, err := parseSign(zodiac)
	if err != nil {
		return entities.AnalysisResult{}, err
	}
	img, err := entities.NewUploadedImage(data, mimeType)
	if err != nil {
		return entities.AnalysisResult{}, err
	}

	return s.analyze(ctx, credential, img, sign)
}

// Analyze implements repositories.PalmAnalyzer for in-process callers.
func (s *PalmService) Analyze(ctx context.Context, image entities.EncodedImage, zodiac entities.ZodiacSign) (entities.AnalysisResult, error) {
	credential, err := s.requireCredential()
	if err != nil {
		return entities.AnalysisResult{}, err
	}
	if !zodiac.Valid() {
		return entities.AnalysisResult{}, domain.Wrap(domain.ErrValidation, "", "Unknown zodiac sign: "+string(zodiac), nil)
	}
	if err := image.Validate(); err != nil {
		return entities.AnalysisResult{}, err
	}
	return s.analyze(ctx, credential, image, zodiac)
}

func (s *PalmService) requireCredential() (string, error) {
	credential := s.credential()
	if credential == "" {
		return "", domain.Wrap(domain.ErrConfiguration, "", s.credentialName+" is not set", nil)
	}
	return credential, nil
}

func parseSign(zodiac string) (entities.ZodiacSign, error) {
	sign := entities.ZodiacSign(strings.TrimSpace(zodiac))
	if !sign.Valid() {
		return "", domain.Wrap(domain.ErrValidation, "", "Unknown zodiac sign: "+zodiac, nil)
	}
	return sign, nil
}

func (s *PalmService) analyze(ctx context.Context, credential string, img entities.EncodedImage, sign entities.ZodiacSign) (entities.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Info("Forwarding palm analysis",
		zap.String("model", s.model.Name()),
		zap.String("zodiac", string(sign)),
		zap.String("mimeType", img.MIMEType),
		zap.Int("imageBytes", len(img.Data)))

	text, err := s.model.Generate(ctx, repositories.VisionRequest{
		Credential:        credential,
		SystemInstruction: llm.SystemInstruction(sign),
		Prompt:            llm.UserPrompt(sign),
		Image:             img,
	})
	if err != nil {
		if domain.Kind(err) == "internal_error" {
			err = domain.Wrap(domain.ErrTransport, "analyze", "external capability failed", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("External capability timed out", zap.Duration("timeout", s.timeout))
		}
		return entities.AnalysisResult{}, err
	}

	if strings.TrimSpace(text) == "" {
		return entities.AnalysisResult{}, &domain.FormatError{Message: "No content from model"}
	}

	result, clamped, err := entities.DecodeAnalysisResult(text)
	if err != nil {
		var shapeErr *entities.ShapeError
		if errors.As(err, &shapeErr) {
			s.logger.Warn("Model returned incomplete result", zap.Strings("missing", shapeErr.Missing))
			return entities.AnalysisResult{}, &domain.FormatError{Message: "Model returned incomplete result", Raw: text, Err: err}
		}
		s.logger.Warn("Model returned non-JSON", zap.Int("responseBytes", len(text)))
		return entities.AnalysisResult{}, &domain.FormatError{Message: "Model returned non-JSON", Raw: text, Err: err}
	}
	if clamped {
		s.logger.Warn("Radar scores outside 1-10 were clamped")
	}

	return result, nil
}
