// Package main provides the entrypoint for the relaytranslate Telegram bot.
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

	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/api"
	"github.com/relaytranslate/relaytranslate/internal/api/middleware"
	"github.com/relaytranslate/relaytranslate/internal/config"
	"github.com/relaytranslate/relaytranslate/internal/dispatch"
	"github.com/relaytranslate/relaytranslate/internal/events"
	"github.com/relaytranslate/relaytranslate/internal/health"
	"github.com/relaytranslate/relaytranslate/internal/provider/resilience"
	"github.com/relaytranslate/relaytranslate/internal/telegram"
	"github.com/relaytranslate/relaytranslate/internal/telemetry"
	"github.com/relaytranslate/relaytranslate/internal/translation"
	"github.com/relaytranslate/relaytranslate/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "relaytranslate-bot"

func main() {
	cfg := config.FromEnv()

	log := zerolog.New(os.Stdout).
		Level(cfg.Level()).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting relaytranslate bot")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}

	log.Info().Msg("bot stopped")
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
		ExportInterval: cfg.TelemetryExportInterval,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Dur("export_interval", telemetry.ExportInterval(cfg.TelemetryExportInterval)).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing http metrics: %w", err)
	}
	translationMetrics, err := telemetry.NewTranslationMetrics()
	if err != nil {
		return fmt.Errorf("initializing translation metrics: %w", err)
	}

	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("loading translation policy: %w", err)
	}

	// Translation client: single attempt per message, breaker on server faults
	httpConfig := resilience.DefaultClientConfig(translation.ProviderName)
	httpConfig.CircuitBreaker.OnStateChange = resilience.LogStateChange(log)
	translator := translation.NewClient(translation.ClientConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		HTTPClient: resilience.NewClient(httpConfig),
		Metrics:    translationMetrics,
		Logger:     log.With().Str("component", "translation").Logger(),
	})

	poolConfig := worker.DefaultPoolConfig()
	poolConfig.Size = cfg.WorkerPoolSize
	pool := worker.NewPool(poolConfig, log.With().Str("component", "worker").Logger())
	log.Info().Int("workers", pool.Size()).Msg("worker pool started")

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.PubSubEnabled() {
		pubsubPublisher, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubTopic,
			Logger:    log,
		})
		if err != nil {
			return fmt.Errorf("creating event publisher: %w", err)
		}
		publisher = pubsubPublisher
		log.Info().
			Str("project_id", cfg.PubSubProjectID).
			Str("topic", cfg.PubSubTopic).
			Msg("publishing translation events")
	}

	monitor := health.NewMonitor(health.MonitorConfig{
		BotToken: cfg.TelegramToken,
		API:      translator,
		Memory:   health.NewMemoryProbe(),
		Metrics:  translationMetrics,
		Logger:   log.With().Str("component", "health").Logger(),
	})

	router := api.NewRouter(api.RouterConfig{
		Logger:  log,
		Metrics: httpMetrics,
		Checker: monitor,
		State:   monitor.State(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("health server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// The health endpoint drives check cycles; the self-check is opt-in.
	if cfg.HealthCheckInterval > 0 {
		log.Info().Dur("interval", cfg.HealthCheckInterval).Msg("periodic health self-check enabled")
		go monitor.Run(ctx, cfg.HealthCheckInterval)
	}

	bot, err := connectBot(ctx, cfg, log, policy, translator, pool, publisher, translationMetrics, monitor, monitor.State())
	if err == nil {
		select {
		case err = <-serverErr:
			err = fmt.Errorf("health server: %w", err)
		default:
			err = runBot(ctx, bot, serverErr)
		}
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if bot != nil {
		if waitErr := bot.pipeline.Wait(shutdownCtx); waitErr != nil {
			log.Error().Err(waitErr).Msg("in-flight messages abandoned")
		}
	}
	if poolErr := pool.Shutdown(shutdownCtx); poolErr != nil {
		log.Error().Err(poolErr).Msg("worker pool forced to shutdown")
	}
	poolStats := pool.Stats()
	log.Info().
		Int64("submitted", poolStats.Submitted.Load()).
		Int64("completed", poolStats.Completed.Load()).
		Int64("panicked", poolStats.Panicked.Load()).
		Msg("worker pool stopped")
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("health server forced to shutdown")
	}
	if closeErr := publisher.Close(); closeErr != nil {
		log.Error().Err(closeErr).Msg("failed to close event publisher")
	}

	return err
}

type runningBot struct {
	bot      *telegram.Bot
	pipeline *dispatch.Pipeline
}

func connectBot(
	ctx context.Context,
	cfg config.Config,
	log zerolog.Logger,
	policy translation.Policy,
	translator *translation.Client,
	pool *worker.Pool,
	publisher events.Publisher,
	metrics *telemetry.TranslationMetrics,
	monitor *health.Monitor,
	state *health.State,
) (*runningBot, error) {
	tgLog := log.With().Str("component", "telegram").Logger()

	conn, err := telegram.Connect(ctx, telegram.ConnectConfig{
		Token:  cfg.TelegramToken,
		Logger: tgLog,
	})
	if err != nil {
		return nil, err
	}

	messenger := telegram.NewMessenger(conn)

	pipeline := dispatch.NewPipeline(dispatch.PipelineConfig{
		Policy:     policy,
		Translator: translator,
		Messenger:  messenger,
		Pool:       pool,
		Publisher:  publisher,

		ProcessingNotice: true,

		Metrics: metrics,
		Logger:  log.With().Str("component", "dispatch").Logger(),
	})

	commands := telegram.NewCommands(telegram.CommandsConfig{
		Policy:     policy,
		Health:     monitor,
		State:      state,
		Stats:      pipeline.Stats(),
		Queue:      pool,
		Circuit:    translator,
		HealthPort: cfg.Port,
	})

	bot := telegram.NewBot(telegram.BotConfig{
		API:        conn,
		Dispatcher: pipeline,
		Commands:   commands,
		Messenger:  messenger,
		Policy:     policy,
		Logger:     tgLog,
	})

	return &runningBot{bot: bot, pipeline: pipeline}, nil
}

// runBot receives updates until ctx is done or the health server fails.
func runBot(ctx context.Context, b *runningBot, serverErr <-chan error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.bot.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case err := <-serverErr:
		cancel()
		<-done
		return fmt.Errorf("health server: %w", err)
	}
}
