package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/satriahrh/palmistry/domain/repositories"
)

// ErrNoDevice is returned by Open when no capture source is configured.
var ErrNoDevice = errors.New("camera: no capture device")

// StillCamera is a capture device whose live feed is a single still image on
// disk. It stands in for a webcam in terminal front-ends.
type StillCamera struct {
	path   string
	logger *zap.Logger
}

var _ repositories.Camera = (*StillCamera)(nil)

// NewStillCamera creates a camera that serves frames from path. An empty path
// yields a camera that always fails to open.
func NewStillCamera(path string, logger *zap.Logger) *StillCamera {
	return &StillCamera{path: path, logger: logger}
}

// Open implements repositories.Camera
func (c *StillCamera) Open(ctx context.Context) (repositories.CameraStream, error) {
	if c.path == "" {
		return nil, ErrNoDevice
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", c.path, err)
	}
	defer f.Close()

	frame, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("camera: decode frame: %w", err)
	}

	c.logger.Info("Camera stream opened",
		zap.String("source", c.path),
		zap.Int("width", frame.Bounds().Dx()),
		zap.Int("height", frame.Bounds().Dy()))

	return &stillStream{frame: frame, logger: c.logger}, nil
}

type stillStream struct {
	mu      sync.Mutex
	frame   image.Image
	stopped bool
	logger  *zap.Logger
}

func (s *stillStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, errors.New("camera: stream stopped")
	}
	return s.frame, ctx.Err()
}

func (s *stillStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.frame = nil
	s.logger.Debug("Camera stream stopped")
}
