package scraper

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"autoriascout/helpers"
	"autoriascout/logger"
	apperrors "autoriascout/pkg/errors"
)

// DetailFetcher fetches one detail page and assembles a Listing from it.
type DetailFetcher struct {
	log *logger.Logger
}

// NewDetailFetcher creates a DetailFetcher logging through log.
func NewDetailFetcher(log *logger.Logger) *DetailFetcher {
	return &DetailFetcher{log: log}
}

// Fetch returns a fully populated Listing for one discovered card, or nil on
// any failure. Single-item failures are logged and swallowed here so that one
// broken page never loses the rest of the batch.
func (f *DetailFetcher) Fetch(card CardRef) *Listing {
	body, err := helpers.FetchDetailPage(card.URL)
	if err != nil {
		f.log.Warn().Err(err).Str("url", card.URL).Msg("Detail page fetch failed, dropping item")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		perr := apperrors.NewParsing("detail_page", "failed to parse HTML", err)
		f.log.Warn().Err(perr).Str("url", card.URL).Msg("Detail page parse failed, dropping item")
		return nil
	}

	// The provisional title from the listing card wins over the page heading.
	title := card.Title
	if title == "" {
		title = extractTitle(doc)
	}

	imageURL, imagesCount := extractImages(doc)

	return &Listing{
		URL:         card.URL,
		Title:       title,
		PriceUSD:    extractPrice(doc),
		OdometerKM:  extractOdometer(doc),
		SellerName:  extractSellerName(doc),
		PhoneNumber: extractPhone(doc),
		ImageURL:    imageURL,
		ImagesCount: imagesCount,
		PlateNumber: extractPlateNumber(doc),
		VIN:         extractVIN(doc),
		FoundAt:     time.Now().UTC(),
	}
}
