package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/internal/auth"
	"github.com/satriahrh/palmistry/internal/websocket"
	"github.com/satriahrh/palmistry/usecase"
)

// InitRoutes initializes all relay routes. issuer may be nil to leave the
// palm routes open.
func InitRoutes(e *echo.Echo, palmService *usecase.PalmService, hub *websocket.Hub, issuer *auth.Issuer, logger *zap.Logger) {
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{OK: true})
	})

	gate := BearerGate(issuer, logger)

	e.POST("/api/palm/analyze", func(c echo.Context) error {
		return analyze(c, palmService, logger)
	}, gate)
	e.POST("/api/palm/analyze-multipart", func(c echo.Context) error {
		return analyzeMultipart(c, palmService, logger)
	}, gate)

	e.GET("/ws/palm", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	}, gate)
}

func analyze(c echo.Context, palmService *usecase.PalmService, logger *zap.Logger) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.Wrap(domain.ErrValidation, "", "Invalid request body", err), logger)
	}

	result, err := palmService.AnalyzePayload(c.Request().Context(), req.Image, req.Zodiac)
	if err != nil {
		return writeError(c, err, logger)
	}
	return c.JSON(http.StatusOK, result)
}

func analyzeMultipart(c echo.Context, palmService *usecase.PalmService, logger *zap.Logger) error {
	zodiac := c.FormValue("zodiac")

	var data []byte
	var mimeType string
	fileHeader, err := c.FormFile("image")
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			return writeError(c, domain.Wrap(domain.ErrValidation, "", "Failed to open uploaded file", err), logger)
		}
		defer file.Close()

		data, err = io.ReadAll(io.LimitReader(file, entities.MaxEncodedBytes+1))
		if err != nil {
			return writeError(c, domain.Wrap(domain.ErrValidation, "", "Failed to read uploaded file", err), logger)
		}
		mimeType = fileHeader.Header.Get(echo.HeaderContentType)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return writeError(c, domain.Wrap(domain.ErrValidation, "", "Invalid multipart body", err), logger)
	}

	result, err := palmService.AnalyzeUpload(c.Request().Context(), data, mimeType, zodiac)
	if err != nil {
		return writeError(c, err, logger)
	}
	return c.JSON(http.StatusOK, result)
}
