package scraper

import (
	"context"
	"time"
)

// Listing represents one scraped vehicle record. A Listing is always built
// fully populated: an attribute the page does not carry is an empty string or
// zero, never a dropped record.
type Listing struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PriceUSD    int       `json:"price_usd"`
	OdometerKM  int       `json:"odometer"`
	SellerName  string    `json:"seller_name"`
	PhoneNumber string    `json:"phone_number"`
	ImageURL    string    `json:"image_url"`
	ImagesCount int       `json:"images_count"`
	PlateNumber string    `json:"plate_number,omitempty"`
	VIN         string    `json:"vin,omitempty"`
	FoundAt     time.Time `json:"found_at"`
}

// CardRef is one listing card discovered on a pagination page: the resolved
// detail-page URL plus the provisional title shown on the card.
type CardRef struct {
	URL   string
	Title string
}

// PageOutcome is the result of parsing one pagination page. HasCards reflects
// raw card presence before link resolution; a card whose link cannot be
// resolved is dropped from Cards but still counts toward HasCards.
type PageOutcome struct {
	Cards    []CardRef
	HasCards bool
}

// TerminalReason says why a crawl stopped.
type TerminalReason string

const (
	// ReasonExhausted means a page rendered no listing cards at all
	ReasonExhausted TerminalReason = "exhausted"
	// ReasonPageError means a pagination page could not be fetched or parsed
	ReasonPageError TerminalReason = "page_error"
	// ReasonPageCap means the configured max-pages cap was reached
	ReasonPageCap TerminalReason = "page_cap"
	// ReasonRateLimited means the rate-limit guard blocked the run
	ReasonRateLimited TerminalReason = "rate_limited"
	// ReasonCancelled means the run context was cancelled
	ReasonCancelled TerminalReason = "cancelled"
)

// CrawlResult is the aggregate of a full run.
type CrawlResult struct {
	Total  int            `json:"total"`
	Pages  int            `json:"pages"`
	Reason TerminalReason `json:"reason"`
}

// UpsertResult says what an upsert did with a listing.
type UpsertResult int

const (
	// UpsertCreated means a new row was inserted
	UpsertCreated UpsertResult = iota
	// UpsertUpdated means an existing row (same URL) was refreshed
	UpsertUpdated
	// UpsertSkipped means the (url, vin) pair already exists
	UpsertSkipped
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	case UpsertSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Sink persists listings into the durable store.
type Sink interface {
	Upsert(ctx context.Context, listing *Listing) (UpsertResult, error)
}

// Snapshotter writes the point-in-time export of one full run.
type Snapshotter interface {
	Write(listings []Listing, ts time.Time) (string, error)
}

// Publisher receives serialized newly created listings.
type Publisher interface {
	Publish(message []byte) error
}
