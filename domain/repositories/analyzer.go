package repositories

import (
	"context"

	"github.com/satriahrh/palmistry/domain/entities"
)

// PalmAnalyzer turns a palm photo and a zodiac sign into a fortune report.
// Errors are tagged with the domain kind markers.
type PalmAnalyzer interface {
	Analyze(ctx context.Context, image entities.EncodedImage, zodiac entities.ZodiacSign) (entities.AnalysisResult, error)
}
