package repositories

import (
	"context"

	"github.com/satriahrh/palmistry/domain/entities"
)

// VisionRequest is the fixed request shape sent to the external capability:
// one system instruction plus one user turn made of a text prompt and an image.
type VisionRequest struct {
	// Credential is resolved by the caller at call time and never cached here.
	Credential        string
	SystemInstruction string
	Prompt            string
	Image             entities.EncodedImage
}

// VisionModel abstracts any vision-capable text generation provider.
type VisionModel interface {
	// Generate returns the single text payload produced by the model.
	Generate(ctx context.Context, req VisionRequest) (string, error)
	// Name identifies the provider and model in logs.
	Name() string
}
