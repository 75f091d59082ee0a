// Package scheduler wires up the daily cron jobs: one scrape run and one
// database dump, each at its own configured wall-clock time.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"autoriascout/logger"
)

// Config carries the two daily run times. It is passed in explicitly at
// construction; the scheduler never reads globals.
type Config struct {
	ScrapeHour   int
	ScrapeMinute int
	DumpHour     int
	DumpMinute   int
}

// Scheduler wraps robfig/cron and triggers the scrape and dump jobs.
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	scrapeFn func(ctx context.Context)
	dumpFn   func(ctx context.Context)
	log      *logger.Logger
}

// New creates a Scheduler that runs scrapeFn and dumpFn daily per cfg.
func New(cfg Config, scrapeFn, dumpFn func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		scrapeFn: scrapeFn,
		dumpFn:   dumpFn,
		log:      logger.ForScheduler(),
	}
}

// Start registers both jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	scrapeSpec := dailySpec(s.cfg.ScrapeHour, s.cfg.ScrapeMinute)
	dumpSpec := dailySpec(s.cfg.DumpHour, s.cfg.DumpMinute)

	if _, err := s.cron.AddFunc(scrapeSpec, func() {
		s.log.Info().Msg("Scheduled scrape starting")
		s.scrapeFn(ctx)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc scrape: %w", err)
	}

	if _, err := s.cron.AddFunc(dumpSpec, func() {
		s.log.Info().Msg("Scheduled dump starting")
		s.dumpFn(ctx)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc dump: %w", err)
	}

	s.cron.Start()
	s.log.Info().
		Str("scrape_spec", scrapeSpec).
		Str("dump_spec", dumpSpec).
		Msg("Scheduler started")
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info().Msg("Scheduler stopped")
}

// dailySpec builds a cron spec firing once a day at hour:minute.
func dailySpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}
