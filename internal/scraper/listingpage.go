package scraper

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autoriascout/helpers"
	apperrors "autoriascout/pkg/errors"
)

// baseOrigin resolves relative detail links discovered on listing pages.
const baseOrigin = "https://auto.ria.com"

// titlePlaceholder is used when no title selector matches a card.
const titlePlaceholder = "Title not found"

// Selector chains, tried in order; the first non-empty match set wins.
// Secondary entries cover markup variants the site serves intermittently.
var (
	cardSelectors = []string{"section.ticket-item", "div.content-bar"}

	cardTitleSelectors = []string{
		"div.content > div.head-ticket > div.item.ticket-title > a > span.blue.bold",
		"a.address span.blue",
		"span.blue.bold",
	}

	cardLinkSelectors = []string{"a.address", "a.m-link-ticket"}
)

// ParseListingPage fetches one pagination page and extracts the listing cards
// on it. Transport and HTTP failures propagate as typed errors; an absence of
// card markup is not an error but PageOutcome.HasCards = false.
func ParseListingPage(pageURL string) (PageOutcome, error) {
	body, err := helpers.FetchListingPage(pageURL)
	if err != nil {
		return PageOutcome{}, err
	}
	return parseListingBody(body)
}

func parseListingBody(body io.Reader) (PageOutcome, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return PageOutcome{}, apperrors.NewParsing("listing_page", "failed to parse HTML", err)
	}
	return parseListingDoc(doc), nil
}

func parseListingDoc(doc *goquery.Document) PageOutcome {
	cards := findFirst(doc, cardSelectors)
	if cards.Length() == 0 {
		return PageOutcome{HasCards: false}
	}

	outcome := PageOutcome{HasCards: true}
	cards.Each(func(_ int, card *goquery.Selection) {
		link := cardLink(card)
		if link == "" {
			// card without a resolvable detail link; still counts as content
			return
		}
		outcome.Cards = append(outcome.Cards, CardRef{
			URL:   link,
			Title: cardTitle(card),
		})
	})
	return outcome
}

// findFirst returns the match set of the first selector that matches anything.
func findFirst(doc *goquery.Document, selectors []string) *goquery.Selection {
	sel := doc.Find(selectors[0])
	for _, selector := range selectors[1:] {
		if sel.Length() > 0 {
			break
		}
		sel = doc.Find(selector)
	}
	return sel
}

// cardTitle extracts the provisional title from one card.
func cardTitle(card *goquery.Selection) string {
	for _, selector := range cardTitleSelectors {
		if title := strings.TrimSpace(card.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	return titlePlaceholder
}

// cardLink extracts and resolves the detail-page link from one card.
func cardLink(card *goquery.Selection) string {
	for _, selector := range cardLinkSelectors {
		href, exists := card.Find(selector).First().Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" {
			continue
		}
		if !strings.HasPrefix(href, "http") {
			href = baseOrigin + href
		}
		return href
	}
	return ""
}
