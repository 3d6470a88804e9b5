package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/internal/auth"
)

// ConfigureMiddleware installs the relay's middleware chain: request ids,
// access log, panic recovery, CORS and the body limit, e.g. "15M".
func ConfigureMiddleware(e *echo.Echo, bodyLimit string, logger *zap.Logger) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestID", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(bodyLimit))
}

// BearerGate rejects requests without a valid relay token. A nil issuer
// disables the gate.
func BearerGate(issuer *auth.Issuer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if issuer == nil {
			return next
		}
		return func(c echo.Context) error {
			token, err := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				logger.Warn("Request rejected: missing token", zap.String("uri", c.Request().RequestURI))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error: "JWT token is required in Authorization header",
					Kind:  "missing_token",
				})
			}

			claims, err := issuer.ValidateToken(token)
			if err != nil {
				kind := "invalid_token"
				if errors.Is(err, auth.ErrInvalidRole) {
					kind = "invalid_role"
				}
				logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error: "Invalid or expired JWT token",
					Kind:  kind,
				})
			}

			c.Set("subject", claims.Subject)
			return next(c)
		}
	}
}
