package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/palmistry/adapters/llm"
	"github.com/satriahrh/palmistry/internal/auth"
	"github.com/satriahrh/palmistry/internal/websocket"
	"github.com/satriahrh/palmistry/usecase"
)

const scenarioResult = `{"title":"T","summary":"S","radarData":{"leadership":5,"communication":5,"logical":5,"creative":5,"empathy":5},"categories":{"nature":{"label":"本質","text":"x"},"love":{"label":"恋愛","text":"x"},"money":{"label":"金運","text":"x"},"relation":{"label":"対人","text":"x"},"life":{"label":"運気・生活","text":"x"}},"detectedLines":{"lifeLine":"x","headLine":"x","heartLine":"x"}}`

const scenarioRequest = `{"image":"data:image/jpeg;base64,Zm9v","zodiac":"牡羊座"}`

func setupTestEcho(t *testing.T, model *llm.MockVision, credential string, issuer *auth.Issuer) *echo.Echo {
	t.Helper()
	logger := zaptest.NewLogger(t)
	service := usecase.NewPalmService(model, "OPENAI_API_KEY",
		func() string { return credential }, time.Second, logger)

	hub := websocket.NewHub(service, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	e := echo.New()
	ConfigureMiddleware(e, "15M", logger)
	InitRoutes(e, service, hub, issuer, logger)
	return e
}

func postJSON(e *echo.Echo, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	e := setupTestEcho(t, llm.NewMockVision(""), "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestAnalyzeReturnsExactResult(t *testing.T) {
	model := llm.NewMockVision(scenarioResult)
	e := setupTestEcho(t, model, "sk-test", nil)

	rec := postJSON(e, "/api/palm/analyze", scenarioRequest, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, scenarioResult, rec.Body.String())

	sent, ok := model.LastRequest()
	require.True(t, ok)
	assert.Equal(t, []byte("foo"), sent.Image.Data)
	assert.Equal(t, "image/jpeg", sent.Image.MIMEType)
}

func TestAnalyzeNonJSONIsBadGateway(t *testing.T) {
	e := setupTestEcho(t, llm.NewMockVision("not json"), "sk-test", nil)

	rec := postJSON(e, "/api/palm/analyze", scenarioRequest, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decodeError(t, rec)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, "not json", resp.Raw)
	assert.Equal(t, "upstream_format_error", resp.Kind)
}

func TestAnalyzeIncompleteResultIsBadGateway(t *testing.T) {
	e := setupTestEcho(t, llm.NewMockVision(`{"title":"T","summary":"S"}`), "sk-test", nil)

	rec := postJSON(e, "/api/palm/analyze", scenarioRequest, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, `{"title":"T","summary":"S"}`, decodeError(t, rec).Raw)
}

func TestAnalyzeMissingFields(t *testing.T) {
	for _, body := range []string{
		`{"zodiac":"牡羊座"}`,
		`{"image":"data:image/jpeg;base64,Zm9v"}`,
		`{}`,
	} {
		model := llm.NewMockVision("")
		e := setupTestEcho(t, model, "sk-test", nil)

		rec := postJSON(e, "/api/palm/analyze", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Missing required fields: image, zodiac", decodeError(t, rec).Error)
		assert.Zero(t, model.Calls(), body)
	}
}

func TestAnalyzeWithoutCredential(t *testing.T) {
	for _, body := range []string{scenarioRequest, `{}`, `{"image":"Zm9v","zodiac":"牡羊座"}`} {
		model := llm.NewMockVision(scenarioResult)
		e := setupTestEcho(t, model, "", nil)

		rec := postJSON(e, "/api/palm/analyze", body, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		resp := decodeError(t, rec)
		assert.Equal(t, "OPENAI_API_KEY is not set", resp.Error)
		assert.Equal(t, "configuration_error", resp.Kind)
		assert.Zero(t, model.Calls())
	}
}

func TestAnalyzeRejectsUnknownZodiac(t *testing.T) {
	model := llm.NewMockVision("")
	e := setupTestEcho(t, model, "sk", nil)

	rec := postJSON(e, "/api/palm/analyze", `{"image":"Zm9v","zodiac":"Ophiuchus"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, model.Calls())
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	e := setupTestEcho(t, llm.NewMockVision(""), "sk", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/palm/analyze", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyzeBodyLimit(t *testing.T) {
	model := llm.NewMockVision("")
	e := setupTestEcho(t, model, "sk", nil)

	big := `{"image":"` + strings.Repeat("A", 16*1024*1024) + `","zodiac":"牡羊座"}`
	rec := postJSON(e, "/api/palm/analyze", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, model.Calls())
}

func multipartBody(t *testing.T, zodiac, contentType string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if zodiac != "" {
		require.NoError(t, w.WriteField("zodiac", zodiac))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="palm"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postMultipart(e *echo.Echo, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/palm/analyze-multipart", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeMultipart(t *testing.T) {
	model := llm.NewMockVision(scenarioResult)
	e := setupTestEcho(t, model, "sk", nil)

	body, ct := multipartBody(t, "獅子座", "image/png", []byte("png-bytes"))
	rec := postMultipart(e, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, scenarioResult, rec.Body.String())

	sent, _ := model.LastRequest()
	assert.Equal(t, "image/png", sent.Image.MIMEType)
	assert.Equal(t, []byte("png-bytes"), sent.Image.Data)
}

func TestAnalyzeMultipartRejections(t *testing.T) {
	tests := []struct {
		name       string
		zodiac     string
		mime       string
		file       []byte
		wantStatus int
	}{
		{"bmp", "牡羊座", "image/bmp", []byte("BM..."), http.StatusUnsupportedMediaType},
		{"missing file", "牡羊座", "", nil, http.StatusBadRequest},
		{"missing zodiac", "", "image/jpeg", []byte("x"), http.StatusBadRequest},
		{"empty file", "牡羊座", "image/jpeg", []byte{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llm.NewMockVision("")
			e := setupTestEcho(t, model, "sk", nil)

			body, ct := multipartBody(t, tt.zodiac, tt.mime, tt.file)
			rec := postMultipart(e, body, ct)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.GreaterOrEqual(t, rec.Code, 400)
			assert.Less(t, rec.Code, 500)
			assert.Zero(t, model.Calls())
		})
	}
}

func TestBearerGate(t *testing.T) {
	issuer, err := auth.NewIssuer("s3cret")
	require.NoError(t, err)
	model := llm.NewMockVision(scenarioResult)
	e := setupTestEcho(t, model, "sk", issuer)

	rec := postJSON(e, "/api/palm/analyze", scenarioRequest, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", decodeError(t, rec).Kind)

	rec = postJSON(e, "/api/palm/analyze", scenarioRequest, http.Header{"Authorization": {"Bearer nope"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", decodeError(t, rec).Kind)
	assert.Zero(t, model.Calls())

	token, err := issuer.GenerateClientToken("tester", time.Minute)
	require.NoError(t, err)
	rec = postJSON(e, "/api/palm/analyze", scenarioRequest, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	health := httptest.NewRecorder()
	e.ServeHTTP(health, req)
	assert.Equal(t, http.StatusOK, health.Code)
}
