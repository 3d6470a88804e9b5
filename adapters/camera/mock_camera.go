package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/satriahrh/palmistry/domain/repositories"
)

// MockCamera is an in-memory camera for tests and demos. It tracks how many
// streams are currently open.
type MockCamera struct {
	mu      sync.Mutex
	width   int
	height  int
	openErr error
	opened  int
	active  int
}

var _ repositories.Camera = (*MockCamera)(nil)

// NewMockCamera creates a mock camera producing width x height frames.
func NewMockCamera(width, height int) *MockCamera {
	return &MockCamera{width: width, height: height}
}

// NewUnavailableCamera creates a mock camera whose Open always fails with err.
func NewUnavailableCamera(err error) *MockCamera {
	if err == nil {
		err = ErrNoDevice
	}
	return &MockCamera{openErr: err}
}

// Open implements repositories.Camera
func (m *MockCamera) Open(ctx context.Context) (repositories.CameraStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.opened++
	m.active++
	return &mockStream{camera: m}, nil
}

// Opened returns the total number of streams ever opened.
func (m *MockCamera) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Active returns the number of streams not yet stopped.
func (m *MockCamera) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

type mockStream struct {
	camera  *MockCamera
	stopped bool
}

func (s *mockStream) Frame(ctx context.Context) (image.Image, error) {
	s.camera.mu.Lock()
	defer s.camera.mu.Unlock()
	if s.stopped {
		return nil, errors.New("camera: stream stopped")
	}
	img := image.NewRGBA(image.Rect(0, 0, s.camera.width, s.camera.height))
	for x := 0; x < s.camera.width; x++ {
		img.Set(x, s.camera.height/2, color.RGBA{R: 200, G: 160, B: 140, A: 255})
	}
	return img, ctx.Err()
}

func (s *mockStream) Stop() {
	s.camera.mu.Lock()
	defer s.camera.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.camera.active--
}
