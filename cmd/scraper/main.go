package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamiebrown201/sport-sage-sub001/internal/adapters"
	"github.com/jamiebrown201/sport-sage-sub001/internal/jobs"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/browser"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/config"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/health"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/logging"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/metrics"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/notify"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/ratelimit"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/storage"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/teamident"
	"github.com/jamiebrown201/sport-sage-sub001/internal/reconcile"
	"github.com/jamiebrown201/sport-sage-sub001/internal/rotation"
	"github.com/jamiebrown201/sport-sage-sub001/internal/settlement"
)

const defaultConfigPath = "configs/production.yaml"

func main() {
	if err := run(); err != nil {
		slog.Error("scraper failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.Logging.Level, "scraper")
	slog.Info("config loaded", "path", *configPath, "sources", len(cfg.Sources), "sports", cfg.Jobs.Sports)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Canonical store.
	store, err := storage.NewPostgresStore(cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer store.Close()

	// Rotation state: Redis when configured (multi-worker), otherwise process
	// memory.
	var stateStore rotation.StateStore
	if cfg.Redis.Enabled {
		redisStore, err := rotation.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("open redis: %w", err)
		}
		defer redisStore.Close()
		stateStore = redisStore
	} else {
		stateStore = rotation.NewMemoryStore()
	}

	// Settlement queue. Without a broker URL settlements stay in memory,
	// which is only useful for local runs.
	var dispatcher settlement.Dispatcher
	if cfg.Settlement.AMQPURL != "" {
		amqpDispatcher, err := settlement.NewAMQPDispatcher(cfg.Settlement.AMQPURL, cfg.Settlement.Queue)
		if err != nil {
			return fmt.Errorf("open settlement queue: %w", err)
		}
		dispatcher = amqpDispatcher
	} else {
		slog.Warn("no settlement queue configured, settlements will not be delivered")
		dispatcher = settlement.NewMemoryDispatcher()
	}
	defer dispatcher.Close()

	registry, err := rotation.NewRegistry(cfg.Sources)
	if err != nil {
		return fmt.Errorf("build source registry: %w", err)
	}
	detector := ratelimit.NewDetector(cfg.Scraper.MinRequestDelay)
	collector := metrics.NewCollector(0)
	manager := rotation.NewManager(registry, stateStore, detector, collector, cfg.Scraper.GoodEnoughCount)

	resolver := teamident.NewResolver(store, cfg.Scraper.FuzzyThreshold)
	reconciler := reconcile.NewReconciler(store, resolver, dispatcher)

	pool, err := browser.NewPool(ctx, cfg.Scraper.PoolSize, cfg.Scraper.UserAgent)
	if err != nil {
		return fmt.Errorf("start browser pool: %w", err)
	}
	defer pool.Close()

	adapterRegistry, err := buildAdapters(cfg)
	if err != nil {
		return err
	}
	slog.Info("adapters registered", "sources", adapterRegistry.Names())

	var notifier jobs.Notifier
	if cfg.Alerts.TelegramBotToken != "" {
		telegram, err := notify.NewTelegramNotifier(cfg.Alerts.TelegramBotToken, cfg.Alerts.TelegramChatID)
		if err != nil {
			slog.Warn("telegram notifier unavailable, alerts go to the store only", "error", err)
		} else {
			notifier = telegram
		}
	}

	runner := jobs.NewRunner(manager, adapterRegistry, pool, reconciler, store, store, jobs.Options{
		Sports:          cfg.Jobs.Sports,
		MaxAttempts:     cfg.Scraper.MaxAttempts,
		InterSportDelay: cfg.Jobs.InterSportDelay,
	})
	monitor := jobs.NewAlertMonitor(collector, store, notifier)
	scheduler := jobs.NewScheduler(runner, monitor, jobs.Intervals{
		Fixtures:   cfg.Jobs.FixturesInterval,
		Odds:       cfg.Jobs.OddsInterval,
		LiveScores: cfg.Jobs.LiveScoresInterval,
	})

	if cfg.Health.Port > 0 {
		server := health.NewServer(collector, manager, store, store)
		server.Run(ctx, health.AddrFor(cfg.Health.Port), cfg.Health.ReadHeaderTimeout)
	}

	scheduler.Start(ctx)
	slog.Info("scraper running")

	<-ctx.Done()
	slog.Info("shutting down")
	scheduler.Wait()
	return nil
}

// buildAdapters registers one adapter per enabled source: the browser-based
// site adapters plus the HTTP odds API fallback when configured.
func buildAdapters(cfg *config.Config) (*scrape.Registry, error) {
	registry := scrape.NewRegistry()
	opts := adapters.Options{
		NavigateTimeout: cfg.Scraper.NavigateTimeout,
		SelectorTimeout: cfg.Scraper.SelectorTimeout,
		Dumper:          scrape.NewDumper(cfg.Scraper.DumpDir),
	}

	for _, src := range cfg.EnabledSources() {
		if src.Name == "oddsapi" {
			if cfg.Scraper.OddsAPIBaseURL == "" {
				return nil, fmt.Errorf("source oddsapi enabled but odds_api_base_url is not set")
			}
			registry.Register(adapters.NewOddsAPI(src.Name, cfg.Scraper.OddsAPIBaseURL, cfg.Scraper.OddsAPIKey, cfg.Scraper.NavigateTimeout))
			continue
		}
		adapter, err := adapters.NewSiteAdapter(src, opts)
		if err != nil {
			return nil, fmt.Errorf("build adapter for %s: %w", src.Name, err)
		}
		registry.Register(adapter)
	}
	return registry, nil
}
