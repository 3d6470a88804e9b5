package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/palmistry/adapters/llm"
	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
)

var tinyJPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func staticCredential(v string) CredentialSource {
	return func() string { return v }
}

func newTestService(t *testing.T, model *llm.MockVision, credential string) *PalmService {
	t.Helper()
	return NewPalmService(model, "OPENAI_API_KEY", staticCredential(credential), time.Second, zaptest.NewLogger(t))
}

func dataURI(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

func TestAnalyzePayloadSuccess(t *testing.T) {
	model := llm.NewMockVision("")
	svc := newTestService(t, model, "sk-test")

	result, err := svc.AnalyzePayload(context.Background(), dataURI(tinyJPEG), "獅子座")
	require.NoError(t, err)

	var want entities.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(llm.CannedResult), &want))
	assert.Equal(t, want, result)

	req, ok := model.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "sk-test", req.Credential)
	assert.Equal(t, tinyJPEG, req.Image.Data)
	assert.Equal(t, entities.MediaTypeJPEG, req.Image.MIMEType)
	assert.Contains(t, req.Prompt, "獅子座")
	assert.Contains(t, req.SystemInstruction, "獅子座")
}

func TestAnalyzePayloadAcceptsRawBase64(t *testing.T) {
	model := llm.NewMockVision("")
	svc := newTestService(t, model, "sk-test")

	_, err := svc.AnalyzePayload(context.Background(), base64.StdEncoding.EncodeToString(tinyJPEG), "魚座")
	require.NoError(t, err)

	req, _ := model.LastRequest()
	assert.Equal(t, entities.MediaTypeJPEG, req.Image.MIMEType)
}

func TestAnalyzePayloadRejections(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		image      string
		zodiac     string
		wantErr    error
	}{
		{"missing credential wins over missing fields", "", "", "", domain.ErrConfiguration},
		{"missing image", "sk", "", "獅子座", domain.ErrValidation},
		{"missing zodiac", "sk", dataURI(tinyJPEG), "", domain.ErrValidation},
		{"unknown zodiac", "sk", dataURI(tinyJPEG), "Leo", domain.ErrValidation},
		{"malformed base64", "sk", "data:image/jpeg;base64,@@@", "獅子座", domain.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llm.NewMockVision("")
			svc := newTestService(t, model, tt.credential)

			_, err := svc.AnalyzePayload(context.Background(), tt.image, tt.zodiac)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, model.Calls())
		})
	}
}

func TestAnalyzeUploadRejections(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		mime    string
		zodiac  string
		wantErr error
	}{
		{"missing zodiac", tinyJPEG, "image/jpeg", "", domain.ErrValidation},
		{"missing file", nil, "", "獅子座", domain.ErrValidation},
		{"bmp", tinyJPEG, "image/bmp", "獅子座", domain.ErrUnsupportedMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llm.NewMockVision("")
			svc := newTestService(t, model, "sk")

			_, err := svc.AnalyzeUpload(context.Background(), tt.data, tt.mime, tt.zodiac)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, model.Calls())
		})
	}
}

func TestAnalyzeUploadPassesDeclaredType(t *testing.T) {
	model := llm.NewMockVision("")
	svc := newTestService(t, model, "sk")

	_, err := svc.AnalyzeUpload(context.Background(), []byte("png-bytes"), "image/png", "乙女座")
	require.NoError(t, err)

	req, _ := model.LastRequest()
	assert.Equal(t, "image/png", req.Image.MIMEType)
	assert.Equal(t, []byte("png-bytes"), req.Image.Data)
}

func TestAnalyzeModelOutputFailures(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantRaw string
	}{
		{"non json", "not json", "not json"},
		{"incomplete", `{"title":"x"}`, `{"title":"x"}`},
		{"blank", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llm.NewMockVision(tt.text)
			svc := newTestService(t, model, "sk")

			_, err := svc.AnalyzePayload(context.Background(), dataURI(tinyJPEG), "獅子座")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrUpstreamFormat)
			assert.False(t, domain.Retryable(err))

			raw, ok := domain.RawText(err)
			assert.Equal(t, tt.wantRaw != "", ok)
			assert.Equal(t, tt.wantRaw, raw)
		})
	}
}

func TestAnalyzeUntaggedModelErrorBecomesTransport(t *testing.T) {
	model := llm.NewFailingMockVision(errors.New("connection reset"))
	svc := newTestService(t, model, "sk")

	_, err := svc.AnalyzePayload(context.Background(), dataURI(tinyJPEG), "獅子座")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, domain.Retryable(err))
}

func TestAnalyzeEnforcesTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	model := llm.NewMockVision("").BlockUntil(release)
	svc := NewPalmService(model, "OPENAI_API_KEY", staticCredential("sk"), 20*time.Millisecond, zaptest.NewLogger(t))

	_, err := svc.AnalyzePayload(context.Background(), dataURI(tinyJPEG), "獅子座")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyzeTypedInput(t *testing.T) {
	model := llm.NewMockVision("")
	svc := newTestService(t, model, "sk")
	img := entities.EncodedImage{MIMEType: entities.MediaTypeJPEG, Data: tinyJPEG}

	_, err := svc.Analyze(context.Background(), img, entities.ZodiacAries)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), img, entities.ZodiacSign("Aries"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Analyze(context.Background(), entities.EncodedImage{}, entities.ZodiacAries)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, model.Calls())
}

func TestEnvCredential(t *testing.T) {
	t.Setenv("PALM_TEST_KEY", "  sk-env  ")
	assert.Equal(t, "sk-env", EnvCredential("PALM_TEST_KEY")())

	t.Setenv("PALM_TEST_KEY", "")
	assert.Equal(t, "", EnvCredential("PALM_TEST_KEY")())
}
