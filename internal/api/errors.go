package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/domain"
)

// StatusForError maps a domain error kind to an HTTP status.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrUpstreamFormat), errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an ErrorResponse. Unknown failures never expose
// their text.
func writeError(c echo.Context, err error, logger *zap.Logger) error {
	status := StatusForError(err)
	kind := domain.Kind(err)

	response := ErrorResponse{Error: domain.Message(err), Kind: kind}
	if raw, ok := domain.RawText(err); ok {
		response.Raw = raw
	}
	if kind == "internal_error" {
		response.Error = "Internal server error"
	}

	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("kind", kind),
		zap.String("requestID", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Palm analysis request failed", fields...)
	} else {
		logger.Warn("Palm analysis request rejected", fields...)
	}

	return c.JSON(status, response)
}
