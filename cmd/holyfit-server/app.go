package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	jsonfileAdapter "github.com/kazeca/holyfit-sub000/adapters/jsonfile"
	mem "github.com/kazeca/holyfit-sub000/adapters/memory"
	redisAdapter "github.com/kazeca/holyfit-sub000/adapters/redis"
	sqlxAdapter "github.com/kazeca/holyfit-sub000/adapters/sqlx"
	"github.com/kazeca/holyfit-sub000/analytics"
	"github.com/kazeca/holyfit-sub000/api/httpapi"
	"github.com/kazeca/holyfit-sub000/config"
	"github.com/kazeca/holyfit-sub000/engine"
	"github.com/kazeca/holyfit-sub000/holyfit"
	"github.com/kazeca/holyfit-sub000/integrations/webhook"
	"github.com/kazeca/holyfit-sub000/leaderboard"
	"github.com/kazeca/holyfit-sub000/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Hub       *realtime.Hub
	Board     leaderboard.Board
	Analytics *analytics.Service
	Service   *engine.ProgressionService
	Handler   http.Handler
	Server    *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideBoard() leaderboard.Board {
	return leaderboard.NewSkipList()
}

func provideAnalytics(logger *slog.Logger) *analytics.Service {
	return analytics.NewService(nil, 0, logger)
}

func provideStorage(ctx context.Context, cfg *config.Config) (engine.Store, error) {
	return setupStorage(ctx, cfg)
}

func provideService(cfg *config.Config, hub *realtime.Hub, board leaderboard.Board, kpi *analytics.Service, store engine.Store, logger *slog.Logger) (*engine.ProgressionService, error) {
	loc, err := time.LoadLocation(cfg.Progression.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid progression timezone: %w", err)
	}

	opts := []holyfit.Option{
		holyfit.WithStore(store),
		holyfit.WithRealtime(hub),
		holyfit.WithAnalytics(kpi.Hook()),
		holyfit.WithLeaderboard(board),
		holyfit.WithTimezone(loc),
		holyfit.WithDispatchMode(engine.DispatchAsync),
	}
	if len(cfg.Webhooks.NotifyEndpoints) > 0 {
		sink := webhook.New(cfg.Webhooks.NotifyEndpoints, webhook.WithLogger(logger))
		opts = append(opts, holyfit.WithNotifier(sink), holyfit.WithRecorder(sink))
	}
	return holyfit.New(opts...), nil
}

func provideHandler(svc *engine.ProgressionService, hub *realtime.Hub, board leaderboard.Board, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, hub, board, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RequestTimeout:   cfg.Server.RequestTimeout,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(_ context.Context, cfg *config.Config) (engine.Store, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		return sqlxAdapter.New(cfg.Storage.SQL)
	case "file":
		return jsonfileAdapter.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
