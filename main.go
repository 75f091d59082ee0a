package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"autoriascout/config"
	"autoriascout/internal/scheduler"
	"autoriascout/internal/scraper"
	"autoriascout/internal/storage"
	"autoriascout/internal/web"
	"autoriascout/logger"
	"autoriascout/services/cache"
	"autoriascout/services/publisher"
)

func main() {
	once := flag.Bool("once", false, "run a single scrape now and exit")
	startURL := flag.String("url", "", "override the configured start URL (with -once)")
	dump := flag.Bool("dump", false, "create a database dump now and exit")
	strict := flag.Bool("strict", false, "exit non-zero when a manual run fails")
	flag.Parse()

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *dump {
		runDump(ctx, cfg, *strict)
		return
	}

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLen,
	)
	defer redisPublisher.Close()

	guard := scraper.NewRateGuard(
		cache.NewMemcacheService(cfg.MemcacheAddr),
		cfg.RateLimitBlock,
	)

	s := scraper.New(scraper.Options{
		StartURL:    cfg.StartURL,
		MaxPages:    cfg.MaxPages,
		Concurrency: cfg.Concurrency,
		Sink:        store,
		Snapshots:   storage.NewSnapshotWriter(cfg.DumpsDir),
		Publisher:   redisPublisher,
		Guard:       guard,
	})

	if *once {
		runOnce(ctx, s, *startURL, *strict)
		return
	}

	runDaemon(ctx, cancel, cfg, s, store)
}

// runOnce performs one manual scrape and prints the outcome.
func runOnce(ctx context.Context, s *scraper.Scraper, startURL string, strict bool) {
	result, err := s.Run(ctx, startURL)
	if err != nil {
		fmt.Printf("Scrape failed: %v\n", err)
		logger.LogError("scraper", err, "Manual scrape failed")
		if strict {
			os.Exit(1)
		}
		return
	}
	fmt.Printf("Scrape completed. Collected %d cars over %d pages (%s).\n",
		result.Total, result.Pages, result.Reason)
}

// runDump performs one manual database dump and prints the outcome.
func runDump(ctx context.Context, cfg *config.Config, strict bool) {
	path, err := storage.CreateDump(ctx, cfg.DatabaseURL, cfg.DumpsDir)
	if err != nil {
		fmt.Printf("Database dump failed: %v\n", err)
		logger.LogError("store", err, "Manual dump failed")
		if strict {
			os.Exit(1)
		}
		return
	}
	fmt.Printf("Database dump created: %s\n", path)
}

// runDaemon starts the scheduler and the stats server and waits for a signal.
func runDaemon(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, s *scraper.Scraper, store *storage.Store) {
	log := logger.Default

	scrapeHour, scrapeMinute, _ := config.ParseClock(cfg.ScrapeRunTime)
	dumpHour, dumpMinute, _ := config.ParseClock(cfg.DumpRunTime)

	sched := scheduler.New(scheduler.Config{
		ScrapeHour:   scrapeHour,
		ScrapeMinute: scrapeMinute,
		DumpHour:     dumpHour,
		DumpMinute:   dumpMinute,
	}, func(ctx context.Context) {
		// the scheduler boundary reduces failures to a zero-count log entry
		result, err := s.Run(ctx, "")
		if err != nil {
			logger.LogError("scraper", err, "Scheduled scrape failed")
			return
		}
		log.Info().Int("total", result.Total).Msg("Scheduled scrape finished")
	}, func(ctx context.Context) {
		if _, err := storage.CreateDump(ctx, cfg.DatabaseURL, cfg.DumpsDir); err != nil {
			logger.LogError("store", err, "Scheduled dump failed")
		}
	})

	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	server := web.NewServer(cfg.StatsAddr, store)
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	log.Info().
		Str("environment", cfg.Environment).
		Str("scrape_time", cfg.ScrapeRunTime).
		Str("dump_time", cfg.DumpRunTime).
		Msg("AutoRia scout running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("Stats server exited with error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Stats server shutdown failed")
	}

	log.Info().Msg("Shutting down gracefully...")
}
