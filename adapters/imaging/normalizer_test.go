package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return n
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape over", 4000, 3000, 1024, 768},
		{"portrait over", 3000, 4000, 768, 1024},
		{"square over", 2048, 2048, 1024, 1024},
		{"within bounds", 800, 600, 800, 600},
		{"exact edge", 1024, 500, 1024, 500},
		{"rounding", 3001, 1000, 1024, 341},
		{"very thin", 100000, 10, 1024, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledSize(tt.w, tt.h, 1024)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestScaledSizePreservesAspectRatio(t *testing.T) {
	for w := 1025; w < 5000; w += 377 {
		for h := 300; h < 5000; h += 413 {
			sw, sh := ScaledSize(w, h, 1024)
			long := sw
			if sh > sw {
				long = sh
			}
			assert.Equal(t, 1024, long, "%dx%d", w, h)

			want := float64(w) / float64(h)
			got := float64(sw) / float64(sh)
			// one pixel of rounding on the short edge
			tolerance := want / float64(min(sw, sh))
			assert.InDelta(t, want, got, tolerance+1e-9, "%dx%d -> %dx%d", w, h, sw, sh)
		}
	}
}

func TestNormalizeUploadResizesAndRoundTrips(t *testing.T) {
	n := newTestNormalizer(t)

	img, err := n.NormalizeUpload(bytes.NewReader(pngOf(t, 2000, 1500)))
	require.NoError(t, err)
	assert.Equal(t, entities.MediaTypeJPEG, img.MIMEType)
	assert.Equal(t, 1024, img.Width)
	assert.Equal(t, 768, img.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 1024, decoded.Bounds().Dx())
	assert.Equal(t, 768, decoded.Bounds().Dy())
}

func TestNormalizeUploadKeepsSmallImages(t *testing.T) {
	n := newTestNormalizer(t)

	img, err := n.NormalizeUpload(bytes.NewReader(pngOf(t, 640, 480)))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestNormalizeUploadRejectsGarbage(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.NormalizeUpload(strings.NewReader("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestEncodeFrameKeepsNativeResolution(t *testing.T) {
	n := newTestNormalizer(t)

	frame := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	img, err := n.EncodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, 1920, img.Width)
	assert.Equal(t, 1080, img.Height)

	_, err = n.EncodeFrame(nil)
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(Config{}))
	assert.Error(t, ValidateConfig(Config{MaxEdge: -1}))
	assert.Error(t, ValidateConfig(Config{UploadQuality: 101}))
	assert.Error(t, ValidateConfig(Config{CaptureQuality: -5}))
}
