package usecase

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/domain/repositories"
)

// CaptureController owns the camera for the capture phase. At most one stream
// is open at any time.
type CaptureController struct {
	camera     repositories.Camera
	normalizer repositories.ImageNormalizer
	logger     *zap.Logger

	mu        sync.Mutex
	stream    repositories.CameraStream
	available bool
	openErr   error
	image     *entities.EncodedImage
}

// NewCaptureController creates a new capture controller. camera may be nil
// when the front-end has no device at all.
func NewCaptureController(camera repositories.Camera, normalizer repositories.ImageNormalizer, logger *zap.Logger) *CaptureController {
	return &CaptureController{
		camera:     camera,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Start opens the camera. Failure is recorded, not returned: the capture phase
// stays usable through the file path.
func (c *CaptureController) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(ctx)
}

func (c *CaptureController) startLocked(ctx context.Context) {
	c.stopLocked()
	c.available = false
	c.openErr = nil

	if c.camera == nil {
		c.openErr = domain.Wrap(domain.ErrDecode, "start camera", "no camera configured", nil)
		c.logger.Info("No camera configured, file upload only")
		return
	}

	stream, err := c.camera.Open(ctx)
	if err != nil {
		c.openErr = err
		c.logger.Warn("Camera unavailable, falling back to file upload", zap.Error(err))
		return
	}
	c.stream = stream
	c.available = true
}

// CameraAvailable reports whether a live stream is open.
func (c *CaptureController) CameraAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// CameraError returns why the last Start could not open the camera.
func (c *CaptureController) CameraError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openErr
}

// Capture freezes the current frame, encodes it and releases the stream.
func (c *CaptureController) Capture(ctx context.Context) (entities.EncodedImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return entities.EncodedImage{}, domain.Wrap(domain.ErrInvalidTransition, "capture", "camera is not streaming", nil)
	}

	frame, err := c.stream.Frame(ctx)
	c.stopLocked()
	if err != nil {
		return entities.EncodedImage{}, domain.Wrap(domain.ErrDecode, "capture", "failed to read frame", err)
	}

	img, err := c.normalizer.EncodeFrame(frame)
	if err != nil {
		return entities.EncodedImage{}, err
	}
	c.image = &img

	c.logger.Info("Captured frame",
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Int("bytes", len(img.Data)))
	return img, nil
}

// Upload normalizes a chosen file. Any open stream is released first.
func (c *CaptureController) Upload(r io.Reader) (entities.EncodedImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.image = nil

	img, err := c.normalizer.NormalizeUpload(r)
	if err != nil {
		c.logger.Warn("Failed to normalize upload", zap.Error(err))
		return entities.EncodedImage{}, err
	}
	c.image = &img
	return img, nil
}

// Retake discards the held image and reopens the camera.
func (c *CaptureController) Retake(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = nil
	c.startLocked(ctx)
}

// Image returns the held image, if any.
func (c *CaptureController) Image() (entities.EncodedImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.image == nil {
		return entities.EncodedImage{}, false
	}
	return *c.image, true
}

// Close releases the camera. It is safe to call more than once.
func (c *CaptureController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *CaptureController) stopLocked() {
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream = nil
	c.available = false
}
