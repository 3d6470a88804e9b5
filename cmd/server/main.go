package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/palmistry/adapters/llm"
	"github.com/satriahrh/palmistry/domain/repositories"
	"github.com/satriahrh/palmistry/internal/api"
	"github.com/satriahrh/palmistry/internal/auth"
	"github.com/satriahrh/palmistry/internal/config"
	"github.com/satriahrh/palmistry/internal/websocket"
	"github.com/satriahrh/palmistry/usecase"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load(os.Getenv("PALM_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	model, err := newVisionModel(cfg, logger)
	if err != nil {
		return err
	}

	var issuer *auth.Issuer
	if cfg.Server.JWTSecret != "" {
		issuer, err = auth.NewIssuer(cfg.Server.JWTSecret)
		if err != nil {
			return err
		}
		logger.Info("Bearer token gate enabled for palm routes")
	}

	credentialEnv := cfg.CredentialEnv()
	if os.Getenv(credentialEnv) == "" {
		logger.Warn("Credential is not set, analysis requests will fail until it is",
			zap.String("env", credentialEnv))
	}

	palmService := usecase.NewPalmService(model, credentialEnv, usecase.EnvCredential(credentialEnv),
		cfg.GetUpstreamTimeout(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(palmService, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	api.ConfigureMiddleware(e, cfg.Server.BodyLimit, logger)
	api.InitRoutes(e, palmService, hub, issuer, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Relay started",
			zap.String("port", cfg.Server.Port),
			zap.String("provider", cfg.Model.Provider),
			zap.String("model", model.Name()))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return zcfg.Build()
}

func newVisionModel(cfg *config.Config, logger *zap.Logger) (repositories.VisionModel, error) {
	switch cfg.Model.Provider {
	case config.ProviderGemini:
		return llm.NewGeminiVision(llm.GeminiConfig{
			Model:   cfg.Model.Name,
			BaseURL: cfg.Model.BaseURL,
		}, logger)
	case config.ProviderStub:
		logger.Warn("Using stub vision model, every reading is canned")
		return llm.NewMockVision(""), nil
	default:
		return llm.NewOpenAIVision(llm.OpenAIConfig{
			BaseURL: cfg.Model.BaseURL,
			Model:   cfg.Model.Name,
		}, logger)
	}
}
