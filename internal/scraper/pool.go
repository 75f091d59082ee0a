package scraper

import (
	"context"
	"sync"
)

// DefaultConcurrency bounds parallel detail fetches within one page. Keeping
// the fan-out small avoids tripping the site's anti-abuse defenses.
const DefaultConcurrency = 10

// FetchPool runs the DetailFetcher over a batch of cards with bounded
// parallelism. Each worker writes into its own slot index, so the result
// sequence needs no locking and keeps discovery order.
type FetchPool struct {
	fetcher     *DetailFetcher
	concurrency int
}

// NewFetchPool creates a pool with the given concurrency ceiling.
// Values below 1 fall back to DefaultConcurrency.
func NewFetchPool(fetcher *DetailFetcher, concurrency int) *FetchPool {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &FetchPool{fetcher: fetcher, concurrency: concurrency}
}

// Fetch resolves all cards into Listings, preserving input order, with failed
// fetches filtered out (not reordered to the end). Cancellation is checked
// between dispatches, never mid-fetch. Items are not retried here.
func (p *FetchPool) Fetch(ctx context.Context, cards []CardRef) []Listing {
	slots := make([]*Listing, len(cards))
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	for i, card := range cards {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, card CardRef) {
			defer wg.Done()
			defer func() { <-sem }()
			slots[i] = p.fetcher.Fetch(card)
		}(i, card)
	}
	wg.Wait()

	listings := make([]Listing, 0, len(cards))
	for _, l := range slots {
		if l != nil {
			listings = append(listings, *l)
		}
	}
	return listings
}
