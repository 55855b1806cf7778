package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/jobfeedworker/config"
	"sjsage522/jobfeedworker/internal/crawler"
	"sjsage522/jobfeedworker/logger"
	"sjsage522/jobfeedworker/services/cache"
	"sjsage522/jobfeedworker/services/notifier"
	"sjsage522/jobfeedworker/services/store"
	"sjsage522/jobfeedworker/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("feed_url", cfg.FeedURL).
		Str("renderer", cfg.Renderer).
		Str("store", cfg.StoreBackend).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Starting application")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	scheduler := worker.NewScheduler(services.Worker, cfg.PollInterval, logger.ForScheduler())
	scheduler.Start(ctx)

	exitCode := 0
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-scheduler.Errors():
		log.Error().Err(err).Msg("Persisted state is unusable, stopping to avoid re-notifying the feed")
		exitCode = 1
	}

	log.Info().Msg("Shutting down gracefully...")
	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(cfg.RenderTimeout + 30*time.Second):
		log.Warn().Msg("Timed out waiting for the running cycle")
	}
	cancel()

	if exitCode != 0 {
		services.Cleanup()
		os.Exit(exitCode)
	}
}

// Services holds all the initialized services
type Services struct {
	Store  store.Store
	Worker *worker.Worker
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			logger.LogError("store", err, "Failed to close store")
		}
		s.Store = nil
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}

	feed, err := crawler.NewFeedCrawler(crawler.CrawlerConfig{
		URL: cfg.FeedURL,
		Selectors: crawler.Selectors{
			Card:        cfg.CardSelector,
			Title:       cfg.TitleSelector,
			Description: cfg.DescriptionSelector,
			PostedAt:    cfg.DateSelector,
		},
	}, renderer, logger.ForExtractor())
	if err != nil {
		return nil, err
	}

	seenStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	services.Store = seenStore

	transport, err := notifier.NewTelegramTransport(notifier.TelegramConfig{
		Token:          cfg.TelegramToken,
		ChatID:         cfg.TelegramChatID,
		APIURL:         cfg.TelegramAPIURL,
		DisablePreview: cfg.TelegramDisablePreview,
	})
	if err != nil {
		services.Cleanup()
		return nil, fmt.Errorf("create telegram transport: %w", err)
	}
	n := notifier.NewNotifier(transport, cfg.FeedName, cfg.MaxDescription, logger.ForNotifier())

	var lease cache.Lease = cache.NoopLease{}
	if cfg.MemcacheAddr != "" {
		lease = cache.NewMemcacheLease(cfg.MemcacheAddr, logger.ForLease())
		logger.Info("Using memcache cycle lease at %s", cfg.MemcacheAddr)
	}

	services.Worker = worker.NewWorker(feed, seenStore, n, worker.Options{
		Lease:    lease,
		LeaseKey: "jobfeed_cycle_" + cfg.RedisKey,
		LeaseTTL: cfg.LeaseTTL,
		Logger:   logger.ForWorker(),
	})

	return services, nil
}

func newRenderer(cfg *config.Config) (crawler.Renderer, error) {
	if cfg.Renderer == config.RendererHTTP {
		return crawler.HTTPRenderer{}, nil
	}
	chrome := crawler.NewChromeRenderer(crawler.ChromeOptions{
		Headless:       cfg.BrowserHeadless,
		SlowMo:         cfg.BrowserSlowMo,
		ExecutablePath: cfg.BrowserExecutable,
		UserAgent:      cfg.BrowserUserAgent,
		Timeout:        cfg.RenderTimeout,
	}, logger.ForExtractor())
	if err := chrome.Install(); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	return chrome, nil
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreBackend == config.StoreRedis {
		s := store.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey, logger.ForStore())
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("Connected to Redis at %s (DB: %d, Key: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey)
		return s, nil
	}

	s, err := store.NewFileStore(cfg.StatePath, logger.ForStore())
	if err != nil {
		return nil, err
	}
	logger.Info("Using state file %s", cfg.StatePath)
	return s, nil
}
