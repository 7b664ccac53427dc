package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lexiqai/assist-gateway/internal/config"
	"github.com/lexiqai/assist-gateway/internal/gateway"
	"github.com/lexiqai/assist-gateway/internal/inference"
	"github.com/lexiqai/assist-gateway/internal/observability"
	"github.com/lexiqai/assist-gateway/internal/resilience"
	"github.com/lexiqai/assist-gateway/internal/speech"
	"github.com/lexiqai/assist-gateway/internal/voicestream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	if err := observability.InitErrorReporting(cfg.SentryDSN, cfg.SentryEnvironment, version); err != nil {
		logger.Warn().Err(err).Msg("Error reporting disabled")
	}
	defer observability.FlushErrorReporting(2 * time.Second)

	client := inference.NewClientFromConfig(cfg)
	// Every voice stream shares one breaker so upstream failures trip it for all clients.
	speechBreaker := speech.NewDeepgramBreaker(cfg)
	newCapability := func() speech.Capability { return speech.NewDeepgram(cfg, speechBreaker) }

	logger.Info().
		Str("port", cfg.Port).
		Str("version", version).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Bool("summarize_configured", client.HasCredential(inference.CapabilitySummarize)).
		Bool("speech_available", newCapability().IsAvailable()).
		Msg("Assist Gateway starting")

	// Readiness checks never call upstream services.
	checks := map[string]observability.HealthCheckFunc{
		"summarizer": func(ctx context.Context) (bool, error) {
			if !client.HasCredential(inference.CapabilitySummarize) {
				return false, fmt.Errorf("HF_API_KEY is not set")
			}
			return true, nil
		},
		"translator": func(ctx context.Context) (bool, error) {
			if cfg.TranslateURL == "" {
				return false, fmt.Errorf("TRANSLATE_URL is not set")
			}
			return true, nil
		},
		"speech": func(ctx context.Context) (bool, error) {
			if !newCapability().IsAvailable() {
				return false, fmt.Errorf("DEEPGRAM_API_KEY is not set")
			}
			if speechBreaker.GetState() == resilience.StateOpen {
				return false, fmt.Errorf("deepgram circuit breaker is open")
			}
			return true, nil
		},
	}

	router := gateway.NewRouter(gateway.Routes{
		Summarize:       gateway.NewSummarizeEndpoint(client),
		Translate:       gateway.NewTranslateEndpoint(client),
		Voice:           voicestream.NewHandler(newCapability, cfg.AllowedOrigins()),
		ReadinessChecks: checks,
		Metrics:         cfg.MetricsEnabled,
	}, cfg.AllowedOrigins(), logger)

	server := gateway.NewServer(cfg, router, logger)

	go func() {
		logger.Info().
			Str("endpoint", voiceEndpoint(cfg)).
			Msg("Voice stream endpoint")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

func voiceEndpoint(cfg *config.Config) string {
	if cfg.PublicURL == "" {
		return fmt.Sprintf("ws://localhost:%s/streams/voice", cfg.Port)
	}
	base := strings.TrimSuffix(cfg.PublicURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/streams/voice"
}
