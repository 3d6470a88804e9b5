package llm

import (
	"fmt"

	"github.com/satriahrh/palmistry/domain/entities"
)

// SystemInstructionVersion identifies the output contract below. Any change to
// the instruction text is a breaking change to AnalysisResult.
const SystemInstructionVersion = "palm-v1"

const systemInstructionTemplate = `あなたはプロの占い師および西洋占星術師です。
提供された手相写真と、ユーザーの星座 (%s) を組み合わせて、精密な鑑定を行ってください。

回答は必ず日本語で行い、以下のJSON形式で返却してください。

【期待するJSON構造】
{
  "title": "鑑定のキャッチコピー",
  "summary": "全体的な鑑定の要約",
  "radarData": {
    "leadership": 1-10の数値,
    "communication": 1-10の数値,
    "logical": 1-10の数値,
    "creative": 1-10の数値,
    "empathy": 1-10の数値
  },
  "categories": {
    "nature": { "label": "本質", "text": "詳細テキスト" },
    "love": { "label": "恋愛", "text": "詳細テキスト" },
    "money": { "label": "金運", "text": "詳細テキスト" },
    "relation": { "label": "対人", "text": "詳細テキスト" },
    "life": { "label": "運気・生活", "text": "詳細テキスト" }
  },
  "detectedLines": {
    "lifeLine": "生命線の状態解説",
    "headLine": "知能線の状態解説",
    "heartLine": "感情線の状態解説"
  }
}`

// SystemInstruction returns the fixed instruction for the given sign.
func SystemInstruction(zodiac entities.ZodiacSign) string {
	return fmt.Sprintf(systemInstructionTemplate, zodiac)
}

// UserPrompt returns the text half of the user turn.
func UserPrompt(zodiac entities.ZodiacSign) string {
	return fmt.Sprintf("私の星座は%sです。この手相を鑑定してください。", zodiac)
}
