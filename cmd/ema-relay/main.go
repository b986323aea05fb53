// Command ema-relay serves voice-assistant sessions over WebSocket.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koscakluka/ema-relay/internal/config"
	"github.com/koscakluka/ema-relay/internal/metrics"
	"github.com/koscakluka/ema-relay/internal/server"
	"github.com/koscakluka/ema-relay/internal/telemetry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const serviceName = "ema-relay"

func main() {
	dotEnvErr := config.LoadDotEnv()
	cfg := config.Load()

	shutdownTelemetry, err := telemetry.Setup(telemetry.Config{
		ServiceName: serviceName,
		LogLevel:    cfg.LogLevel,
		TraceStdout: cfg.TraceStdout,
	})
	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(otelslog.NewLogger("github.com/koscakluka/ema-relay/cmd/ema-relay"))

	if dotEnvErr != nil {
		slog.Warn("failed to load .env file", "error", dotEnvErr)
	}

	os.Exit(run(cfg, shutdownTelemetry))
}

func run(cfg config.Config, shutdownTelemetry telemetry.ShutdownFunc) int {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Warn("failed to flush telemetry", "error", err)
		}
	}()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	slog.Info("ema-relay starting",
		"addr", cfg.Addr(),
		"stt_provider", cfg.SpeechToTextProvider,
		"llm_provider", cfg.LLMProvider,
		"tts_provider", cfg.TextToSpeechProvider,
		"search_provider", cfg.SearchProvider,
		"sample_rate", cfg.SampleRate,
		"provider_timeout", cfg.ProviderTimeout,
	)
	for _, name := range cfg.MissingFallbacks() {
		slog.Warn("fallback api key not set, clients must supply it", "env", name)
	}

	stack, err := buildStack(cfg)
	if err != nil {
		slog.Error("failed to build providers", "error", err)
		return 1
	}

	m := metrics.New("ema_relay")
	srv := server.New(stack.newSession(cfg, m.Observer(stack.stages)),
		server.WithFallbackCredentials(cfg.Fallback()),
		server.WithMetricsHandler(m.Handler()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.Addr()); err != nil {
		slog.Error("HTTP server error", "error", err)
		return 1
	}

	slog.Info("ema-relay stopped")
	return 0
}
