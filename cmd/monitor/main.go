package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicemonitor/internal/config"
	"github.com/hamed0406/servicemonitor/internal/httpapi"
	apimw "github.com/hamed0406/servicemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/servicemonitor/internal/logging"
	"github.com/hamed0406/servicemonitor/internal/notify"
	"github.com/hamed0406/servicemonitor/internal/probe"
	"github.com/hamed0406/servicemonitor/internal/repo"
	"github.com/hamed0406/servicemonitor/internal/repo/memory"
	"github.com/hamed0406/servicemonitor/internal/repo/postgres"
	"github.com/hamed0406/servicemonitor/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	path, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration file provided, aborting")
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.Common.LogDir, cfg.Common.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probes := make([]probe.Probe, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		p, err := probe.New(s)
		if err != nil {
			logger.Fatal("probe_config_error", zap.String("service", s.Service), zap.Error(err))
		}
		probes = append(probes, p)
	}

	notifier, err := notify.FromConfig(cfg.Notifications.Email, cfg.Notifications.Slack)
	switch {
	case errors.Is(err, notify.ErrNoNotifier) && cfg.Common.Debug:
		logger.Info("notifier_disabled", zap.String("reason", "debug mode"))
	case err != nil:
		logger.Fatal("notifier_config_error", zap.Error(err))
	}

	journal, closeJournal := openJournal(ctx, cfg.Journal, logger)
	defer closeJournal()

	d := scheduler.New(logger, probes,
		scheduler.Policy{
			ErrorRepeatPeriod:   cfg.Common.ErrorRepeatPeriod,
			WarningRepeatPeriod: cfg.Common.WarningRepeatPeriod,
			ClearOnRecovery:     cfg.Common.ClearOnRecovery,
		},
		notifier,
		scheduler.Options{
			StartupDelay: cfg.Common.StartupDelay(),
			CycleDelay:   cfg.Common.CycleDelay(),
			ProbeTimeout: 2 * cfg.Common.Timeout(),
			Concurrency:  cfg.Common.Concurrency,
			Debug:        cfg.Common.Debug,
			Journal:      journal,
		},
	)

	var srv *http.Server
	if cfg.Status.Addr != "" {
		trusted, err := apimw.ParseTrustedProxies(cfg.Status.TrustedProxies)
		if err != nil {
			logger.Fatal("status_config_error", zap.Error(err))
		}
		api := httpapi.NewServer(logger, d, journal)
		srv = &http.Server{
			Addr: cfg.Status.Addr,
			Handler: api.Router(httpapi.Options{
				APIKeys:        cfg.Status.APIKeys,
				AllowedOrigins: cfg.Status.AllowedOrigins,
				RatePerMin:     cfg.Status.RatePerMin,
				Burst:          cfg.Status.Burst,
				TrustedProxies: trusted,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("api_listen", zap.String("addr", cfg.Status.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api_listen_error", zap.Error(err))
			}
		}()
	}

	logger.Info("config_loaded", zap.String("path", path), zap.Int("services", len(probes)))
	d.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api_shutdown_error", zap.Error(err))
		}
	}
}

// openJournal picks postgres when a database URL is configured and falls
// back to the in-memory ring buffer otherwise.
func openJournal(ctx context.Context, cfg config.Journal, logger *zap.Logger) (repo.JournalStore, func()) {
	if cfg.DatabaseURL == "" {
		return memory.New(cfg.Capacity), func() {}
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("journal_connect_error", zap.Error(err))
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		logger.Fatal("journal_schema_error", zap.Error(err))
	}
	logger.Info("journal_backend", zap.String("kind", "postgres"))
	return pg, pg.Close
}
