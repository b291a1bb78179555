package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/paceline/internal/adapters/http/api"
	"github.com/okian/paceline/internal/adapters/http/swagger"
	"github.com/okian/paceline/internal/adapters/profile"
	"github.com/okian/paceline/internal/adapters/repository"
	app "github.com/okian/paceline/internal/app"
	"github.com/okian/paceline/internal/config"
	"github.com/okian/paceline/pkg/logger"
	"github.com/okian/paceline/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	// profile imports wait on a remote page
	writeSlack = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithJSON(cfg.LogFormat == "json")); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
	}

	if err := metrics.Init(metricsOptions(cfg)...); err != nil {
		log.Fatal(ctx, "failed to initialize metrics", logger.Error(err))
	}

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	go metrics.RunRuntimeSampler(ctx)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.ProfileTimeout() + writeSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
}

// newService builds and starts the analysis service from cfg. A configured
// score table that fails to load is fatal; a missing path only disables
// scoring.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithMaxSelected(cfg.MaxSelected),
		app.WithSessionLimit(cfg.SessionLimit),
		app.WithMaxObservations(cfg.MaxObservations),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithProfileClient(profile.NewClient(profile.WithTimeout(cfg.ProfileTimeout()))),
	}

	if cfg.ScoreTablePath != "" {
		table, rep, err := repository.LoadScoreTableFile(ctx, cfg.ScoreTablePath,
			repository.WithStrict(cfg.StrictScoreTable),
			repository.WithLoadLogger(log.Named("scoretable")),
		)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "score table loaded",
			logger.String("path", cfg.ScoreTablePath),
			logger.Int("rows", rep.Rows),
			logger.Int("skipped", rep.SkippedTotal()),
			logger.Int("violations", len(rep.Violations)),
		)
		opts = append(opts, app.WithScoreTable(table))
	} else {
		log.Warn(ctx, "no score_table_path configured; scoring disabled")
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSampleInterval(cfg.MetricsSampleInterval()),
		metrics.WithLatencyBuckets(cfg.MetricsLatencyBucketsMS),
		metrics.WithLabels(cfg.MetricsLabels),
	}
}
