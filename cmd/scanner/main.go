package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/oddsignal/config"
	"github.com/alejandrodnm/oddsignal/internal/adapters/cache"
	"github.com/alejandrodnm/oddsignal/internal/adapters/httpapi"
	"github.com/alejandrodnm/oddsignal/internal/adapters/notify"
	"github.com/alejandrodnm/oddsignal/internal/adapters/oddsapi"
	"github.com/alejandrodnm/oddsignal/internal/adapters/storage"
	"github.com/alejandrodnm/oddsignal/internal/domain"
	"github.com/alejandrodnm/oddsignal/internal/instrumentation"
	"github.com/alejandrodnm/oddsignal/internal/normalizer"
	"github.com/alejandrodnm/oddsignal/internal/ports"
	"github.com/alejandrodnm/oddsignal/internal/scanner"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle per sport and exit")
	dryRun := flag.Bool("dry-run", false, "use local fixtures instead of the real feed")
	fixtures := flag.String("fixtures", "testdata/fixtures", "fixture directory for -dry-run")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("oddsignal starting",
		"config", *configPath,
		"sports", cfg.Scanner.Sports,
		"interval", cfg.ScanInterval(),
		"bookmakers", len(cfg.Bookmakers),
		"dry_run", *dryRun,
		"once", *once,
	)

	// Validate ya comprobó los nombres, estos errores no deberían ocurrir
	allow, err := cfg.Allowlist()
	if err != nil {
		slog.Error("invalid bookmaker allow-list", "err", err)
		os.Exit(1)
	}
	sports, err := cfg.Sports()
	if err != nil {
		slog.Error("invalid sports", "err", err)
		os.Exit(1)
	}

	feed := newFeed(cfg, allow, *dryRun, *fixtures)
	norm := normalizer.New(allow)

	var store ports.Storage
	if !*dryRun && cfg.Storage.DSN != "" {
		sqlite, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlite.Close()
		store = sqlite
	}

	notifier := notify.NewConsole(*table)
	metrics := instrumentation.NewMetrics()
	opts := []scanner.Option{scanner.WithMetrics(metrics)}

	if cfg.Redis.URL != "" {
		pub, err := cache.NewRedisPublisher(cfg.Redis.URL, cfg.RedisTTL())
		if err != nil {
			slog.Warn("redis unavailable, snapshots will not be replicated", "err", err)
		} else {
			defer pub.Close()
			opts = append(opts, scanner.WithPublisher(pub))
		}
	}

	parlayCfg := scanner.ParlayBuilderConfig{
		PoolSize:           cfg.Parlay.PoolSize,
		MaxLegs:            cfg.Parlay.MaxLegs,
		MaxSuggestions:     cfg.Parlay.MaxSuggestions,
		DefaultCorrelation: cfg.Parlay.DefaultCorrelation,
		SameGameFactor:     cfg.Parlay.SameGameFactor,
		AllowSameGame:      cfg.Parlay.AllowSameGame,
		Combiner:           cfg.ParlayCombinerConfig(),
	}

	scanCfg := scanner.DefaultConfig()
	scanCfg.Sports = sports
	scanCfg.Interval = cfg.ScanInterval()
	scanCfg.Jitter = cfg.Jitter()
	scanCfg.FetchTimeout = cfg.FetchTimeout()
	scanCfg.StaleTTL = cfg.StaleTTL()
	scanCfg.Workers = cfg.Scanner.Workers
	scanCfg.TotalStake = cfg.Arbitrage.TotalStake
	scanCfg.MinArbProfit = cfg.Arbitrage.MinProfit
	scanCfg.Scoring = cfg.ScoringConfig()
	scanCfg.Parlay = parlayCfg
	scanCfg.Once = *once

	s, err := scanner.New(scanCfg, feed, norm, store, notifier, opts...)
	if err != nil {
		slog.Error("failed to create scanner", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var srv *http.Server
	if cfg.HTTP.Addr != "" && !*once {
		api := httpapi.NewServer(s, httpapi.Config{
			CORSOrigins:  cfg.HTTP.CORSOrigins,
			DefaultMinEV: cfg.Scanner.MinEV,
			Metrics:      metrics.Handler(),
		})
		srv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http api listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server failed", "err", err)
				cancel()
			}
		}()
	}

	runErr := s.Run(ctx)

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "err", err)
		}
		stop()
	}

	if runErr != nil {
		slog.Error("scanner exited with error", "err", runErr)
		os.Exit(1)
	}

	slog.Info("oddsignal stopped cleanly")
}

// newFeed elige el feed real o los fixtures locales.
func newFeed(cfg *config.Config, allow []domain.Bookmaker, dryRun bool, fixtures string) ports.FeedProvider {
	if dryRun {
		slog.Info("using fixture feed", "dir", fixtures)
		return oddsapi.NewFixtureFeed(fixtures)
	}
	if cfg.API.Key == "" {
		slog.Warn("ODDS_API_KEY is empty, requests will be rejected upstream")
	}

	keys := make([]string, 0, len(allow))
	for _, b := range allow {
		key, err := normalizer.BookmakerKey(b)
		if err != nil {
			slog.Debug("bookmaker without provider key", "bookmaker", b)
			continue
		}
		keys = append(keys, key)
	}

	return oddsapi.NewClient(oddsapi.Config{
		BaseURL:    cfg.API.BaseURL,
		APIKey:     cfg.API.Key,
		Regions:    cfg.API.Regions,
		Markets:    normalizer.MarketKeys(),
		Bookmakers: keys,
		Timeout:    cfg.FetchTimeout(),
	})
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
