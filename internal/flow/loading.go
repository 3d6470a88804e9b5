package flow

import (
	"context"
	"time"
)

// DefaultRotationInterval is how often the loading message changes.
const DefaultRotationInterval = 2500 * time.Millisecond

// InitialLoadingMessage is shown as soon as the loading phase starts.
const InitialLoadingMessage = "手相を解析中..."

var loadingMessages = []string{
	"星の並びを確認しています...",
	"生命線の深さを測定中...",
	"あなたの運命の転換点を探しています...",
	"2026年の幸運をシミュレーション中...",
}

// LoadingMessages returns the rotation shown while an analysis runs.
func LoadingMessages() []string {
	out := make([]string, len(loadingMessages))
	copy(out, loadingMessages)
	return out
}

// RunRotation shows InitialLoadingMessage, then one rotation message per
// interval until ctx is done. The ticker is stopped on return.
func RunRotation(ctx context.Context, interval time.Duration, show func(string)) {
	if interval <= 0 {
		interval = DefaultRotationInterval
	}
	show(InitialLoadingMessage)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			show(loadingMessages[i%len(loadingMessages)])
		}
	}
}
