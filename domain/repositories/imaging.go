package repositories

import (
	"image"
	"io"

	"github.com/satriahrh/palmistry/domain/entities"
)

// ImageNormalizer produces bounded EncodedImages from raw sources.
type ImageNormalizer interface {
	// NormalizeUpload decodes an arbitrary file, bounds its long edge and
	// re-encodes it as JPEG.
	NormalizeUpload(r io.Reader) (entities.EncodedImage, error)
	// EncodeFrame encodes a camera frame as-is.
	EncodeFrame(frame image.Image) (entities.EncodedImage, error)
}
