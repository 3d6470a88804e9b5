package llm

import (
	"context"
	"sync"

	"github.com/satriahrh/palmistry/domain/repositories"
)

// CannedResult is a complete, valid AnalysisResult payload used by the stub
// provider.
const CannedResult = `{"title":"星に導かれる探求者","summary":"鋭い直感と粘り強さを併せ持つ手相です。","radarData":{"leadership":7,"communication":6,"logical":8,"creative":7,"empathy":6},"categories":{"nature":{"label":"本質","text":"物事の本質を見抜く力があります。"},"love":{"label":"恋愛","text":"誠実な関係を築けるでしょう。"},"money":{"label":"金運","text":"堅実な貯蓄が実を結びます。"},"relation":{"label":"対人","text":"信頼を集める存在です。"},"life":{"label":"運気・生活","text":"規則正しい生活が運気を高めます。"}},"detectedLines":{"lifeLine":"力強く長い生命線です。","headLine":"まっすぐ伸びる知能線です。","heartLine":"穏やかなカーブの感情線です。"}}`

// MockVision is a scripted VisionModel. It records every request it receives.
type MockVision struct {
	mu       sync.Mutex
	response string
	err      error
	block    chan struct{}
	requests []repositories.VisionRequest
}

var _ repositories.VisionModel = (*MockVision)(nil)

// NewMockVision creates a stub returning response (CannedResult when empty).
func NewMockVision(response string) *MockVision {
	if response == "" {
		response = CannedResult
	}
	return &MockVision{response: response}
}

// NewFailingMockVision creates a stub that always returns err.
func NewFailingMockVision(err error) *MockVision {
	return &MockVision{err: err}
}

// BlockUntil makes Generate wait for release to be closed or the context to end.
func (m *MockVision) BlockUntil(release chan struct{}) *MockVision {
	m.block = release
	return m
}

// Name implements repositories.VisionModel
func (m *MockVision) Name() string {
	return "stub/canned"
}

// Generate implements repositories.VisionModel
func (m *MockVision) Generate(ctx context.Context, req repositories.VisionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// Calls returns how many times Generate was invoked.
func (m *MockVision) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, if any.
func (m *MockVision) LastRequest() (repositories.VisionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return repositories.VisionRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}
