package flow

import "github.com/satriahrh/palmistry/domain/entities"

// PhaseName identifies a phase of the reading flow.
type PhaseName string

const (
	PhaseLanding PhaseName = "landing"
	PhaseCapture PhaseName = "capture"
	PhaseZodiac  PhaseName = "zodiac"
	PhaseLoading PhaseName = "loading"
	PhaseResult  PhaseName = "result"
)

// User-visible notices.
const (
	NoticeImageFailed    = "画像の読み込みに失敗しました。別の画像をお試しください。"
	NoticeAnalysisFailed = "解析中にエラーが発生しました。もう一度お試しください。"
	NoticeShare          = "シェア機能は現在準備中です。結果をスクリーンショットして友達に共有しましょう！"
)

// Action is an entry of the landing action sheet.
type Action struct {
	ID    string
	Label string
}

var actionSheet = []Action{
	{ID: "camera", Label: "カメラで撮影する"},
	{ID: "album", Label: "アルバムから選択"},
	{ID: "cancel", Label: "キャンセル"},
}

// ActionSheet returns the options offered from the landing phase.
func ActionSheet() []Action {
	out := make([]Action, len(actionSheet))
	copy(out, actionSheet)
	return out
}

// Phase is one of Landing, Capture, ZodiacSelect, Loading or Result. Each
// variant carries exactly the session data valid in that phase.
type Phase interface {
	Name() PhaseName
	isPhase()
}

// Landing is the entry point. Notice holds the message left by a failed
// attempt, if any.
type Landing struct {
	Notice          string
	ActionSheetOpen bool
}

// Capture drives the camera or shows a chosen file. Image is nil until a
// frame was captured or a file was loaded.
type Capture struct {
	Image           *entities.EncodedImage
	CameraAvailable bool
}

// ZodiacSelect holds the confirmed image while a sign is picked. Selected is
// empty until the user chooses one.
type ZodiacSelect struct {
	Image    entities.EncodedImage
	Selected entities.ZodiacSign
}

// Loading waits for the analysis. Message is the current progress text.
type Loading struct {
	Image   entities.EncodedImage
	Zodiac  entities.ZodiacSign
	Message string
}

// Result shows a finished reading.
type Result struct {
	Image  entities.EncodedImage
	Zodiac entities.ZodiacSign
	Result entities.AnalysisResult
}

func (Landing) Name() PhaseName      { return PhaseLanding }
func (Capture) Name() PhaseName      { return PhaseCapture }
func (ZodiacSelect) Name() PhaseName { return PhaseZodiac }
func (Loading) Name() PhaseName      { return PhaseLoading }
func (Result) Name() PhaseName       { return PhaseResult }

func (Landing) isPhase()      {}
func (Capture) isPhase()      {}
func (ZodiacSelect) isPhase() {}
func (Loading) isPhase()      {}
func (Result) isPhase()       {}

// CanProceed reports whether the proceed action is enabled.
func (z ZodiacSelect) CanProceed() bool {
	return z.Selected.Valid() && len(z.Image.Data) > 0
}
