// Command finch serves Grokipedia search suggestions over HTTP by driving
// a headless Chrome session per request.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FranksOps/finch/internal/browser"
	"github.com/FranksOps/finch/internal/config"
	"github.com/FranksOps/finch/internal/metrics"
	"github.com/FranksOps/finch/internal/probe"
	"github.com/FranksOps/finch/internal/scrape"
	"github.com/FranksOps/finch/internal/server"
	"github.com/FranksOps/finch/internal/storage"
	"github.com/FranksOps/finch/internal/storage/csvbackend"
	"github.com/FranksOps/finch/internal/storage/jsonbackend"
	"github.com/FranksOps/finch/internal/storage/postgres"
	"github.com/FranksOps/finch/internal/storage/sqlite"
	"github.com/FranksOps/finch/internal/suggest"
	"github.com/FranksOps/finch/pkg/proxy"
	"github.com/FranksOps/finch/pkg/useragent"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath string
		debug      bool
	)

	root := &cobra.Command{
		Use:   "finch",
		Short: "Grokipedia search suggestion service",
		Long: "finch serves autocomplete suggestions scraped live from Grokipedia's\n" +
			"search box, one fresh browser session per request.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if debug {
				cfg.Debug = true
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	audit, err := openAuditBackend(ctx, cfg.Audit)
	if err != nil {
		return fmt.Errorf("open audit backend: %w", err)
	}
	if audit != nil {
		defer audit.Close()
	}

	uas := useragent.NewPool(cfg.Browser.UserAgents)

	var proxies *proxy.Pool
	if cfg.Browser.ProxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.LoadFile(cfg.Browser.ProxyFile); err != nil {
			return fmt.Errorf("load proxy file: %w", err)
		}
		logger.Info("loaded proxies", "count", proxies.Size())
	}

	provisioner := browser.NewProvisioner(browser.Config{
		BinaryPath:    cfg.Browser.Binary,
		AllowDownload: cfg.Browser.AllowDownload,
		UserAgents:    uas,
		Proxies:       proxies,
	}, logger)

	var probeClient *probe.Client
	if cfg.Probe.Enabled {
		probeClient, err = probe.NewClient(probe.Config{
			Timeout:    cfg.Probe.Timeout,
			Profile:    probe.Profile(cfg.Probe.Profile),
			UserAgents: uas,
		})
		if err != nil {
			return fmt.Errorf("create probe client: %w", err)
		}
	}

	var robots *probe.Robots
	if cfg.Scrape.RespectRobots && probeClient != nil {
		robots = probe.NewRobots(probeClient, logger)
	}

	scraper := scrape.NewScraper(scrape.Config{
		TargetURL:     cfg.Scrape.TargetURL,
		SettleDelay:   cfg.Scrape.SettleDelay,
		InputTimeout:  cfg.Scrape.InputTimeout,
		FallbackLimit: cfg.Scrape.FallbackLimit,
		RespectRobots: cfg.Scrape.RespectRobots,
	}, browser.Factory(provisioner, logger), robots, logger)

	svc := suggest.NewService(scraper, audit, logger)

	api := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.New(server.Options{
			Service:   svc,
			Probe:     probeClient,
			Audit:     audit,
			TargetURL: cfg.Scrape.TargetURL,
			Logger:    logger,
		}),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.Start(cfg.Metrics.Port)
		logger.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api server started", "addr", api.Addr, "target", cfg.Scrape.TargetURL)
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown api server: %w", err)
		}
		if metricsSrv != nil {
			if err := metricsSrv.Stop(shutdownCtx); err != nil {
				logger.Error("shutdown metrics server", "err", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// openAuditBackend returns nil (auditing disabled) for the "none" backend.
func openAuditBackend(ctx context.Context, cfg config.AuditConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.Path)
	case "postgres":
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return postgres.New(openCtx, cfg.DSN)
	case "jsonl":
		return jsonbackend.New(cfg.Path)
	case "csv":
		return csvbackend.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}
