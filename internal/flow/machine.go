package flow

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/domain/repositories"
	"github.com/satriahrh/palmistry/usecase"
)

// Machine is the reading flow: landing, capture, zodiac, loading, result.
// Leaving the capture phase always releases the camera and leaving the
// loading phase always stops the message rotation.
type Machine struct {
	mu        sync.Mutex
	phase     Phase
	capture   *usecase.CaptureController
	analyzer  repositories.PalmAnalyzer
	interval  time.Duration
	listeners []func(Phase)
	logger    *zap.Logger
}

// NewMachine creates a flow in the landing phase.
func NewMachine(capture *usecase.CaptureController, analyzer repositories.PalmAnalyzer, logger *zap.Logger) *Machine {
	return &Machine{
		phase:    Landing{},
		capture:  capture,
		analyzer: analyzer,
		interval: DefaultRotationInterval,
		logger:   logger,
	}
}

// WithRotationInterval overrides the loading message interval.
func (m *Machine) WithRotationInterval(d time.Duration) *Machine {
	m.interval = d
	return m
}

// OnChange registers fn to be called after every phase change. fn runs
// outside the machine lock.
func (m *Machine) OnChange(fn func(Phase)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// OpenActionSheet shows the capture options on the landing phase.
func (m *Machine) OpenActionSheet() error {
	return m.update("open action sheet", func(current Phase) (Phase, error) {
		if _, ok := current.(Landing); !ok {
			return nil, invalid("open action sheet", current)
		}
		return Landing{ActionSheetOpen: true}, nil
	})
}

// CloseActionSheet dismisses the capture options.
func (m *Machine) CloseActionSheet() error {
	return m.update("close action sheet", func(current Phase) (Phase, error) {
		landing, ok := current.(Landing)
		if !ok {
			return nil, invalid("close action sheet", current)
		}
		landing.ActionSheetOpen = false
		return landing, nil
	})
}

// StartCamera enters the capture phase and opens the camera. A camera that
// cannot be opened leaves the phase usable through ChooseFile.
func (m *Machine) StartCamera(ctx context.Context) error {
	return m.update("start camera", func(current Phase) (Phase, error) {
		if landing, ok := current.(Landing); !ok || !landing.ActionSheetOpen {
			return nil, invalid("start camera", current)
		}
		m.capture.Start(ctx)
		return Capture{CameraAvailable: m.capture.CameraAvailable()}, nil
	})
}

// ChooseFile loads an image file. It is offered by the action sheet and as
// the fallback inside the capture phase. A file that cannot be read returns
// the flow to landing with a notice.
func (m *Machine) ChooseFile(r io.Reader) error {
	var uploadErr error
	err := m.update("choose file", func(current Phase) (Phase, error) {
		switch p := current.(type) {
		case Landing:
			if !p.ActionSheetOpen {
				return nil, invalid("choose file", current)
			}
		case Capture:
		default:
			return nil, invalid("choose file", current)
		}

		img, err := m.capture.Upload(r)
		if err != nil {
			uploadErr = err
			return Landing{Notice: NoticeImageFailed}, nil
		}
		return Capture{Image: &img}, nil
	})
	if err != nil {
		return err
	}
	return uploadErr
}

// CapturePhoto freezes the current camera frame.
func (m *Machine) CapturePhoto(ctx context.Context) error {
	var captureErr error
	err := m.update("capture photo", func(current Phase) (Phase, error) {
		p, ok := current.(Capture)
		if !ok || p.Image != nil || !p.CameraAvailable {
			return nil, invalid("capture photo", current)
		}
		img, err := m.capture.Capture(ctx)
		if err != nil {
			captureErr = err
			return Landing{Notice: NoticeImageFailed}, nil
		}
		return Capture{Image: &img}, nil
	})
	if err != nil {
		return err
	}
	return captureErr
}

// Retake discards the held image and restarts the camera.
func (m *Machine) Retake(ctx context.Context) error {
	return m.update("retake", func(current Phase) (Phase, error) {
		if _, ok := current.(Capture); !ok {
			return nil, invalid("retake", current)
		}
		m.capture.Retake(ctx)
		return Capture{CameraAvailable: m.capture.CameraAvailable()}, nil
	})
}

// ConfirmCapture moves on to zodiac selection with the held image.
func (m *Machine) ConfirmCapture() error {
	return m.update("confirm capture", func(current Phase) (Phase, error) {
		p, ok := current.(Capture)
		if !ok || p.Image == nil {
			return nil, invalid("confirm capture", current)
		}
		return ZodiacSelect{Image: *p.Image}, nil
	})
}

// BackToCapture returns from zodiac selection keeping the image.
func (m *Machine) BackToCapture() error {
	return m.update("back to capture", func(current Phase) (Phase, error) {
		p, ok := current.(ZodiacSelect)
		if !ok {
			return nil, invalid("back to capture", current)
		}
		img := p.Image
		return Capture{Image: &img}, nil
	})
}

// SelectZodiac picks the sign. Selecting again replaces the choice.
func (m *Machine) SelectZodiac(sign entities.ZodiacSign) error {
	return m.update("select zodiac", func(current Phase) (Phase, error) {
		p, ok := current.(ZodiacSelect)
		if !ok {
			return nil, invalid("select zodiac", current)
		}
		if !sign.Valid() {
			return nil, domain.Wrap(domain.ErrValidation, "select zodiac", "unknown sign: "+string(sign), nil)
		}
		p.Selected = sign
		return p, nil
	})
}

// ProceedEnabled reports whether Proceed is currently allowed.
func (m *Machine) ProceedEnabled() bool {
	p, ok := m.Phase().(ZodiacSelect)
	return ok && p.CanProceed()
}

// Proceed runs the analysis. It blocks until the analyzer settles, rotating
// the loading message meanwhile, and ends in the result phase on success or
// in landing with a notice on failure. The analysis error is returned.
func (m *Machine) Proceed(ctx context.Context) error {
	var loading Loading
	err := m.update("proceed", func(current Phase) (Phase, error) {
		p, ok := current.(ZodiacSelect)
		if !ok || !p.CanProceed() {
			return nil, invalid("proceed", current)
		}
		loading = Loading{Image: p.Image, Zodiac: p.Selected, Message: InitialLoadingMessage}
		return loading, nil
	})
	if err != nil {
		return err
	}

	rotationCtx, stopRotation := context.WithCancel(ctx)
	defer stopRotation()

	var g errgroup.Group
	g.Go(func() error {
		RunRotation(rotationCtx, m.interval, m.setLoadingMessage)
		return nil
	})

	started := time.Now()
	result, analyzeErr := m.analyzer.Analyze(ctx, loading.Image, loading.Zodiac)
	stopRotation()
	_ = g.Wait()

	if analyzeErr != nil {
		m.logger.Error("Palm analysis failed",
			zap.String("kind", domain.Kind(analyzeErr)),
			zap.Bool("retryable", domain.Retryable(analyzeErr)),
			zap.Error(analyzeErr))
		m.force(Landing{Notice: NoticeAnalysisFailed})
		return analyzeErr
	}

	m.logger.Info("Palm analysis finished",
		zap.String("title", result.Title),
		zap.Duration("elapsed", time.Since(started)))
	m.force(Result{Image: loading.Image, Zodiac: loading.Zodiac, Result: result})
	return nil
}

// Share returns the notice for the not yet available share action.
func (m *Machine) Share() (string, error) {
	if _, ok := m.Phase().(Result); !ok {
		return "", invalid("share", m.Phase())
	}
	return NoticeShare, nil
}

// Restart discards the session and returns to landing. It is not available
// while an analysis runs.
func (m *Machine) Restart() error {
	return m.update("restart", func(current Phase) (Phase, error) {
		if _, ok := current.(Loading); ok {
			return nil, invalid("restart", current)
		}
		return Landing{}, nil
	})
}

// Close releases the camera.
func (m *Machine) Close() {
	m.capture.Close()
}

func (m *Machine) setLoadingMessage(message string) {
	m.mu.Lock()
	p, ok := m.phase.(Loading)
	if !ok {
		m.mu.Unlock()
		return
	}
	p.Message = message
	m.phase = p
	listeners := append([]func(Phase){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

// update applies a transition. A nil phase from apply means no change.
func (m *Machine) update(op string, apply func(current Phase) (Phase, error)) error {
	m.mu.Lock()
	next, err := apply(m.phase)
	if err != nil || next == nil {
		m.mu.Unlock()
		if err != nil {
			m.logger.Debug("Transition rejected", zap.String("op", op), zap.Error(err))
		}
		return err
	}
	m.enterLocked(next)
	listeners := append([]func(Phase){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

func (m *Machine) force(next Phase) {
	_ = m.update("settle", func(Phase) (Phase, error) { return next, nil })
}

func (m *Machine) enterLocked(next Phase) {
	prev := m.phase
	if _, ok := next.(Capture); !ok {
		m.capture.Close()
	}
	m.phase = next
	if prev.Name() != next.Name() {
		m.logger.Debug("Phase changed",
			zap.String("from", string(prev.Name())),
			zap.String("to", string(next.Name())))
	}
}

func invalid(op string, current Phase) error {
	return domain.Wrap(domain.ErrInvalidTransition, op, fmt.Sprintf("not allowed in %s phase", current.Name()), nil)
}
