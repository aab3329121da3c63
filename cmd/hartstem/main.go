// Command hartstem runs the realtime cardiac anamnesis engine: it opens
// a duplex channel to the model, drives the structured interview and
// exposes a console front-end plus a metrics/health endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jmolenaar/hartstem/internal/bus"
	"github.com/jmolenaar/hartstem/internal/config"
	"github.com/jmolenaar/hartstem/internal/extract"
	"github.com/jmolenaar/hartstem/internal/health"
	"github.com/jmolenaar/hartstem/internal/interview"
	"github.com/jmolenaar/hartstem/internal/observe"
	"github.com/jmolenaar/hartstem/internal/resilience"
	"github.com/jmolenaar/hartstem/internal/session"
	"github.com/jmolenaar/hartstem/internal/transcribe"
	"github.com/jmolenaar/hartstem/pkg/realtime"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "hartstem.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("hartstem", version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		fmt.Fprintf(os.Stderr, "loading config %s: %v\n", *configPath, err)
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("config file not found, using defaults", "path", *configPath)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Error("OPENAI_API_KEY is not set")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "hartstem",
		ServiceVersion: version,
	})
	if err != nil {
		logger.Error("initializing telemetry", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	transcriber, err := newTranscriber(cfg, apiKey)
	if err != nil {
		logger.Error("initializing transcriber", "error", err)
		return 1
	}

	events := bus.New()
	mgr := session.NewManager(session.ManagerConfig{
		Config:      cfg,
		Dial:        newDialer(cfg),
		Bus:         events,
		Tracker:     interview.NewTracker(cfg.InterviewThresholds(), cfg.InterviewCatalogs()),
		Extractor:   extract.NewExtractor(cfg.ExtractKeywords()),
		Transcriber: transcriber,
	})

	srv := newMetricsServer(cfg, mgr)

	logger.Info("hartstem starting",
		"version", version,
		"model", cfg.Realtime.Model,
		"voice", cfg.Realtime.Voice,
		"transcribe_model", cfg.Transcribe.Model,
		"metrics_addr", cfg.Server.MetricsAddr,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	g.Go(func() error {
		defer stop()
		console := newConsole(mgr, events, apiKey, os.Stdin, os.Stdout)
		return console.Run(gctx)
	})

	err = g.Wait()
	if derr := mgr.Disconnect(); derr != nil {
		logger.Warn("disconnect on shutdown", "error", derr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("hartstem exited", "error", err)
		return 1
	}

	logger.Info("hartstem stopped")
	return 0
}

// newDialer binds the configured model and endpoint into a
// [session.Dialer] with retry on transient dial failures.
func newDialer(cfg *config.Config) session.Dialer {
	return func(ctx context.Context, apiKey string) (session.Conn, error) {
		opts := []realtime.Option{realtime.WithModel(cfg.Realtime.Model)}
		if cfg.Realtime.BaseURL != "" {
			opts = append(opts, realtime.WithBaseURL(cfg.Realtime.BaseURL))
		}
		return resilience.Do(ctx, resilience.RetryConfig{Name: "realtime dial"},
			func(ctx context.Context) (session.Conn, error) {
				c, err := realtime.Dial(ctx, apiKey, opts...)
				if err != nil {
					return nil, err
				}
				return c, nil
			})
	}
}

func newTranscriber(cfg *config.Config, apiKey string) (*transcribe.Client, error) {
	opts := []transcribe.Option{transcribe.WithModel(cfg.Transcribe.Model)}
	if cfg.Transcribe.BaseURL != "" {
		opts = append(opts, transcribe.WithBaseURL(cfg.Transcribe.BaseURL))
	}
	return transcribe.New(apiKey, opts...)
}

// newMetricsServer serves Prometheus metrics and health probes.
func newMetricsServer(cfg *config.Config, mgr *session.Manager) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(health.Probe{
		Name: "session",
		Run: func(context.Context) error {
			if st := mgr.State(); st == session.StateErrored {
				return fmt.Errorf("session state %s", st)
			}
			return nil
		},
	}).Register(mux)

	return &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
