package repositories

import (
	"context"
	"image"
)

// Camera opens the capture device.
type Camera interface {
	// Open acquires a live stream. It fails when permission is denied or no
	// device exists.
	Open(ctx context.Context) (CameraStream, error)
}

// CameraStream is one open hardware stream. Stop must be idempotent.
type CameraStream interface {
	// Frame returns the current frame at native resolution.
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}
