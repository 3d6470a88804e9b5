package flow

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/palmistry/adapters/camera"
	"github.com/satriahrh/palmistry/adapters/imaging"
	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/usecase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	result  entities.AnalysisResult
	err     error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, img entities.EncodedImage, zodiac entities.ZodiacSign) (entities.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return entities.AnalysisResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return entities.AnalysisResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestMachine(t *testing.T, cam *camera.MockCamera, analyzer *fakeAnalyzer) *Machine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	normalizer, err := imaging.NewNormalizer(imaging.Config{}, logger)
	require.NoError(t, err)
	controller := usecase.NewCaptureController(cam, normalizer, logger)
	return NewMachine(controller, analyzer, logger).WithRotationInterval(5 * time.Millisecond)
}

func pngReader(t *testing.T) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 300, 200))))
	return bytes.NewReader(buf.Bytes())
}

func toZodiac(t *testing.T, m *Machine, cam *camera.MockCamera) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.OpenActionSheet())
	require.NoError(t, m.StartCamera(ctx))
	assert.Equal(t, 1, cam.Active())
	require.NoError(t, m.CapturePhoto(ctx))
	assert.Zero(t, cam.Active())
	require.NoError(t, m.ConfirmCapture())
	require.IsType(t, ZodiacSelect{}, m.Phase())
}

func TestHappyPath(t *testing.T) {
	cam := camera.NewMockCamera(640, 480)
	analyzer := &fakeAnalyzer{result: entities.AnalysisResult{Title: "T"}}
	m := newTestMachine(t, cam, analyzer)

	var mu sync.Mutex
	var seen []PhaseName
	m.OnChange(func(p Phase) {
		mu.Lock()
		seen = append(seen, p.Name())
		mu.Unlock()
	})

	toZodiac(t, m, cam)
	assert.False(t, m.ProceedEnabled())

	require.NoError(t, m.SelectZodiac(entities.ZodiacLeo))
	assert.True(t, m.ProceedEnabled())

	require.NoError(t, m.Proceed(context.Background()))
	result, ok := m.Phase().(Result)
	require.True(t, ok)
	assert.Equal(t, "T", result.Result.Title)
	assert.Equal(t, entities.ZodiacLeo, result.Zodiac)
	assert.Equal(t, 640, result.Image.Width)

	notice, err := m.Share()
	require.NoError(t, err)
	assert.Equal(t, NoticeShare, notice)

	require.NoError(t, m.Restart())
	assert.Equal(t, Landing{}, m.Phase())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, PhaseLoading)
	assert.Equal(t, PhaseLanding, seen[len(seen)-1])
}

func TestProceedDisabledWithoutSign(t *testing.T) {
	cam := camera.NewMockCamera(64, 64)
	analyzer := &fakeAnalyzer{}
	m := newTestMachine(t, cam, analyzer)
	toZodiac(t, m, cam)

	err := m.Proceed(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Zero(t, analyzer.Calls())

	assert.ErrorIs(t, m.SelectZodiac("Leo"), domain.ErrValidation)
	assert.False(t, m.ProceedEnabled())
}

func TestProceedEnabledForEverySign(t *testing.T) {
	for _, entry := range entities.ZodiacList() {
		p := ZodiacSelect{Image: entities.EncodedImage{MIMEType: entities.MediaTypeJPEG, Data: []byte{1}}}
		assert.False(t, p.CanProceed())
		p.Selected = entry.Sign
		assert.True(t, p.CanProceed(), entry.ID)
	}
}

func TestAnalysisFailureReturnsToLanding(t *testing.T) {
	cam := camera.NewMockCamera(64, 64)
	upstream := domain.Wrap(domain.ErrTransport, "analyze", "boom", nil)
	analyzer := &fakeAnalyzer{err: upstream}
	m := newTestMachine(t, cam, analyzer)
	toZodiac(t, m, cam)
	require.NoError(t, m.SelectZodiac(entities.ZodiacAries))

	err := m.Proceed(context.Background())
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, Landing{Notice: NoticeAnalysisFailed}, m.Phase())
}

func TestLoadingRotatesAndStops(t *testing.T) {
	cam := camera.NewMockCamera(64, 64)
	analyzer := &fakeAnalyzer{release: make(chan struct{})}
	m := newTestMachine(t, cam, analyzer)
	toZodiac(t, m, cam)
	require.NoError(t, m.SelectZodiac(entities.ZodiacPisces))

	var mu sync.Mutex
	var messages []string
	m.OnChange(func(p Phase) {
		if l, ok := p.(Loading); ok {
			mu.Lock()
			messages = append(messages, l.Message)
			mu.Unlock()
		}
	})

	done := make(chan error, 1)
	go func() { done <- m.Proceed(context.Background()) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(messages) >= 3
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, m.Restart(), domain.ErrInvalidTransition)
	assert.ErrorIs(t, m.OpenActionSheet(), domain.ErrInvalidTransition)

	close(analyzer.release)
	require.NoError(t, <-done)
	assert.IsType(t, Result{}, m.Phase())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, InitialLoadingMessage, messages[0])
	assert.Contains(t, LoadingMessages(), messages[2])
}

func TestCameraFailureFallsBackToFile(t *testing.T) {
	cam := camera.NewUnavailableCamera(errors.New("permission denied"))
	m := newTestMachine(t, cam, &fakeAnalyzer{})

	require.NoError(t, m.OpenActionSheet())
	require.NoError(t, m.StartCamera(context.Background()))
	p, ok := m.Phase().(Capture)
	require.True(t, ok)
	assert.False(t, p.CameraAvailable)

	assert.ErrorIs(t, m.CapturePhoto(context.Background()), domain.ErrInvalidTransition)
	assert.ErrorIs(t, m.ConfirmCapture(), domain.ErrInvalidTransition)

	require.NoError(t, m.ChooseFile(pngReader(t)))
	p = m.Phase().(Capture)
	require.NotNil(t, p.Image)
	assert.Equal(t, 300, p.Image.Width)
	require.NoError(t, m.ConfirmCapture())
}

func TestBadFileReturnsToLanding(t *testing.T) {
	cam := camera.NewMockCamera(64, 64)
	m := newTestMachine(t, cam, &fakeAnalyzer{})

	assert.ErrorIs(t, m.ChooseFile(pngReader(t)), domain.ErrInvalidTransition)

	require.NoError(t, m.OpenActionSheet())
	err := m.ChooseFile(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Equal(t, Landing{Notice: NoticeImageFailed}, m.Phase())
}

func TestNavigatingAwayReleasesCamera(t *testing.T) {
	cam := camera.NewMockCamera(64, 64)
	m := newTestMachine(t, cam, &fakeAnalyzer{})

	require.NoError(t, m.OpenActionSheet())
	require.NoError(t, m.StartCamera(context.Background()))
	assert.Equal(t, 1, cam.Active())

	require.NoError(t, m.Restart())
	assert.Zero(t, cam.Active())

	require.NoError(t, m.OpenActionSheet())
	require.NoError(t, m.StartCamera(context.Background()))
	require.NoError(t, m.Retake(context.Background()))
	assert.Equal(t, 1, cam.Active())
	m.Close()
	assert.Zero(t, cam.Active())
}

func TestBackToCaptureKeepsImage(t *testing.T) {
	cam := camera.NewMockCamera(64, 64)
	m := newTestMachine(t, cam, &fakeAnalyzer{})
	toZodiac(t, m, cam)
	require.NoError(t, m.SelectZodiac(entities.ZodiacVirgo))

	require.NoError(t, m.BackToCapture())
	p, ok := m.Phase().(Capture)
	require.True(t, ok)
	require.NotNil(t, p.Image)

	require.NoError(t, m.ConfirmCapture())
	z := m.Phase().(ZodiacSelect)
	assert.Empty(t, z.Selected)
}

func TestActionSheet(t *testing.T) {
	m := newTestMachine(t, camera.NewMockCamera(8, 8), &fakeAnalyzer{})
	assert.ErrorIs(t, m.StartCamera(context.Background()), domain.ErrInvalidTransition)

	require.NoError(t, m.OpenActionSheet())
	assert.True(t, m.Phase().(Landing).ActionSheetOpen)
	require.NoError(t, m.CloseActionSheet())
	assert.False(t, m.Phase().(Landing).ActionSheetOpen)

	labels := []string{}
	for _, a := range ActionSheet() {
		labels = append(labels, a.Label)
	}
	assert.Equal(t, []string{"カメラで撮影する", "アルバムから選択", "キャンセル"}, labels)
}
