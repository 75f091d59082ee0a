package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoriascout/logger"
	apperrors "autoriascout/pkg/errors"
)

// Options configures a Scraper. StartURL and Sink are required; everything
// else has a usable zero value.
type Options struct {
	StartURL    string
	MaxPages    int // 0 disables the page cap
	Concurrency int
	Sink        Sink
	Snapshots   Snapshotter
	Publisher   Publisher  // optional; receives newly created listings
	Guard       *RateGuard // optional; skips runs during a rate-limit cooldown
}

// Scraper drives the pagination loop: parse one listing page, fetch its
// detail pages through the pool, persist the batch, advance. Pages are
// processed strictly one after another; only detail fetches within a page
// run in parallel.
type Scraper struct {
	startURL  string
	maxPages  int
	pool      *FetchPool
	sink      Sink
	snapshots Snapshotter
	publisher Publisher
	guard     *RateGuard
	log       *logger.Logger
}

// New creates a Scraper from opts.
func New(opts Options) *Scraper {
	log := logger.ForScraper()
	return &Scraper{
		startURL:  opts.StartURL,
		maxPages:  opts.MaxPages,
		pool:      NewFetchPool(NewDetailFetcher(log), opts.Concurrency),
		sink:      opts.Sink,
		snapshots: opts.Snapshots,
		publisher: opts.Publisher,
		guard:     opts.Guard,
		log:       log,
	}
}

// Run executes one full crawl. Pagination continues until a page renders no
// listing cards, a page fetch fails outright, or the page cap is hit.
// Per-page batches are persisted before the next page starts, so a crash
// mid-crawl loses at most the in-flight page. Run never panics past this
// boundary; all errors short of a broken snapshot write are reduced to the
// terminal reason in the returned CrawlResult.
func (s *Scraper) Run(ctx context.Context, startURL string) (CrawlResult, error) {
	start := startURL
	if start == "" {
		start = s.startURL
	}

	runID := uuid.NewString()
	log := s.log.WithField("run_id", runID)
	log.Info().Str("start_url", start).Msg("Starting AutoRia scrape")

	if s.guard.Blocked() {
		log.Warn().Msg("Rate-limit cooldown active, skipping run")
		return CrawlResult{Reason: ReasonRateLimited}, nil
	}

	var all []Listing
	pages := 0
	reason := ReasonExhausted

	for page := 1; ; page++ {
		if s.maxPages > 0 && page > s.maxPages {
			reason = ReasonPageCap
			break
		}
		if ctx.Err() != nil {
			reason = ReasonCancelled
			break
		}

		pageURL := s.pageURL(start, page)
		log.Info().Int("page", page).Str("url", pageURL).Msg("Scraping page")

		outcome, err := ParseListingPage(pageURL)
		if err != nil {
			// a single bad page ends the crawl, it does not retry
			if apperrors.IsRateLimit(err) {
				s.guard.Block()
			}
			log.Error().Err(err).Int("page", page).Msg("Listing page failed, ending run")
			pages++
			reason = ReasonPageError
			break
		}
		pages++

		if !outcome.HasCards {
			log.Info().Int("page", page).Msg("No listing cards on page, reached the end")
			break
		}

		listings := s.pool.Fetch(ctx, outcome.Cards)
		log.Info().
			Int("page", page).
			Int("cards", len(outcome.Cards)).
			Int("fetched", len(listings)).
			Msg("Page scraped")

		if len(listings) > 0 {
			s.persist(ctx, listings, log)
			all = append(all, listings...)
		}
	}

	s.writeSnapshot(all, log)

	result := CrawlResult{Total: len(all), Pages: pages, Reason: reason}
	log.Info().
		Int("total", result.Total).
		Int("pages", result.Pages).
		Str("reason", string(result.Reason)).
		Msg("Scrape complete")
	return result, nil
}

// pageURL builds the URL for page n of the crawl.
func (s *Scraper) pageURL(start string, page int) string {
	if page == 1 {
		return start
	}
	return fmt.Sprintf("%s?page=%d", start, page)
}

// persist upserts one page's listings. Duplicate (url, vin) conflicts are
// skips, not failures; other storage errors are logged and the loop moves on.
func (s *Scraper) persist(ctx context.Context, listings []Listing, log *logger.Logger) {
	for i := range listings {
		l := &listings[i]
		res, err := s.sink.Upsert(ctx, l)
		if err != nil {
			if apperrors.IsDuplicate(err) {
				log.Warn().Str("url", l.URL).Msg("Listing already exists, skipping")
				continue
			}
			log.Error().Err(err).Str("url", l.URL).Msg("Failed to save listing")
			continue
		}
		if res == UpsertCreated {
			s.publish(l, log)
		}
	}
}

// publish pushes a newly created listing to the event stream, if configured.
func (s *Scraper) publish(l *Listing, log *logger.Logger) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(l)
	if err != nil {
		log.Error().Err(err).Str("url", l.URL).Msg("Failed to serialize listing")
		return
	}
	if err := s.publisher.Publish(data); err != nil {
		log.Error().Err(err).Str("url", l.URL).Msg("Failed to publish listing")
	}
}

// writeSnapshot exports everything collected across the run into one file.
func (s *Scraper) writeSnapshot(all []Listing, log *logger.Logger) {
	if s.snapshots == nil {
		return
	}
	path, err := s.snapshots.Write(all, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to write snapshot")
		return
	}
	log.Info().Str("path", path).Int("listings", len(all)).Msg("Snapshot written")
}
