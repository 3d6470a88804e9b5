package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/domain/repositories"
)

const (
	defaultMaxEdge        = 1024
	defaultUploadQuality  = 80
	defaultCaptureQuality = 92
)

// Config holds the Normalizer knobs. Zero values fall back to the defaults.
type Config struct {
	MaxEdge        int // long-edge cap for uploads (default 1024)
	UploadQuality  int // JPEG quality for uploads, 1-100 (default 80)
	CaptureQuality int // JPEG quality for camera frames, 1-100 (default 92)
}

// Normalizer converts uploads and camera frames into EncodedImages.
type Normalizer struct {
	maxEdge        int
	uploadQuality  int
	captureQuality int
	logger         *zap.Logger
}

var _ repositories.ImageNormalizer = (*Normalizer)(nil)

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if config.MaxEdge < 0 {
		return fmt.Errorf("max edge must be positive, got %d", config.MaxEdge)
	}
	if config.UploadQuality < 0 || config.UploadQuality > 100 {
		return fmt.Errorf("upload quality must be between 1 and 100, got %d", config.UploadQuality)
	}
	if config.CaptureQuality < 0 || config.CaptureQuality > 100 {
		return fmt.Errorf("capture quality must be between 1 and 100, got %d", config.CaptureQuality)
	}
	return nil
}

// NewNormalizer creates a Normalizer
func NewNormalizer(config Config, logger *zap.Logger) (*Normalizer, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	n := &Normalizer{
		maxEdge:        config.MaxEdge,
		uploadQuality:  config.UploadQuality,
		captureQuality: config.CaptureQuality,
		logger:         logger,
	}
	if n.maxEdge == 0 {
		n.maxEdge = defaultMaxEdge
	}
	if n.uploadQuality == 0 {
		n.uploadQuality = defaultUploadQuality
	}
	if n.captureQuality == 0 {
		n.captureQuality = defaultCaptureQuality
	}
	return n, nil
}

// NormalizeUpload decodes r, scales it so the longer edge is at most maxEdge
// and re-encodes it as JPEG.
func (n *Normalizer) NormalizeUpload(r io.Reader) (entities.EncodedImage, error) {
	src, format, err := image.Decode(io.LimitReader(r, entities.MaxEncodedBytes*4))
	if err != nil {
		return entities.EncodedImage{}, domain.Wrap(domain.ErrDecode, "normalize upload", "source image unreadable", err)
	}

	bounds := src.Bounds()
	width, height := ScaledSize(bounds.Dx(), bounds.Dy(), n.maxEdge)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	img, err := n.encode(dst, n.uploadQuality)
	if err != nil {
		return entities.EncodedImage{}, err
	}

	n.logger.Debug("Normalized uploaded image",
		zap.String("sourceFormat", format),
		zap.Int("sourceWidth", bounds.Dx()),
		zap.Int("sourceHeight", bounds.Dy()),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("bytes", len(img.Data)))

	return img, nil
}

// EncodeFrame encodes a camera frame at native resolution.
func (n *Normalizer) EncodeFrame(frame image.Image) (entities.EncodedImage, error) {
	if frame == nil || frame.Bounds().Empty() {
		return entities.EncodedImage{}, domain.Wrap(domain.ErrDecode, "encode frame", "frame is empty", nil)
	}
	return n.encode(frame, n.captureQuality)
}

func (n *Normalizer) encode(img image.Image, quality int) (entities.EncodedImage, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return entities.EncodedImage{}, domain.Wrap(domain.ErrDecode, "encode image", "jpeg encoding failed", err)
	}

	encoded := entities.EncodedImage{
		MIMEType: entities.MediaTypeJPEG,
		Data:     buf.Bytes(),
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}
	if err := encoded.Validate(); err != nil {
		return entities.EncodedImage{}, domain.Wrap(domain.ErrDecode, "encode image", "encoded image rejected", err)
	}
	return encoded, nil
}

// ScaledSize returns width and height scaled so the longer edge is at most
// maxEdge, preserving aspect ratio. Images already within bounds are returned
// unchanged. Neither edge goes below one pixel.
func ScaledSize(width, height, maxEdge int) (int, int) {
	if width <= 0 || height <= 0 || maxEdge <= 0 {
		return width, height
	}
	if width > height {
		if width > maxEdge {
			height = scaleEdge(height, maxEdge, width)
			width = maxEdge
		}
	} else {
		if height > maxEdge {
			width = scaleEdge(width, maxEdge, height)
			height = maxEdge
		}
	}
	return width, height
}

func scaleEdge(edge, num, den int) int {
	scaled := int(math.Round(float64(edge) * float64(num) / float64(den)))
	if scaled < 1 {
		return 1
	}
	return scaled
}
