package helpers

import (
	"bytes"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"time"

	"golang.org/x/net/html/charset"

	apperrors "autoriascout/pkg/errors"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://auto.ria.com/",
	}

	// Listing pages are heavier than detail pages, so they get a wider bound.
	listingClient = &http.Client{
		Timeout: 15 * time.Second,
	}

	detailClient = &http.Client{
		Timeout: 10 * time.Second,
	}
)

// FetchListingPage fetches one pagination page and returns its body as UTF-8.
func FetchListingPage(url string) (io.Reader, error) {
	return fetchWithRandomHeaders(listingClient, url, "listing_page")
}

// FetchDetailPage fetches one vehicle detail page and returns its body as UTF-8.
func FetchDetailPage(url string) (io.Reader, error) {
	return fetchWithRandomHeaders(detailClient, url, "detail_page")
}

// fetchWithRandomHeaders sends an HTTP GET request with randomized browser-like
// headers, converts the response body to UTF-8 (if needed), and returns it as
// an io.Reader. Failures come back as typed errors so callers can tell
// transport failures, bad statuses, and rate limiting apart.
func fetchWithRandomHeaders(client *http.Client, url, source string) (io.Reader, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, apperrors.NewNetwork(source, "failed to create request", err)
	}

	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "uk-UA,uk;q=0.9,ru;q=0.8,en-US;q=0.7,en;q=0.6")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("upgrade-insecure-requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetwork(source, "failed to fetch "+url, err)
	}

	// 430 is a non-standard code some anti-abuse layers use alongside 429
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		resp.Body.Close()
		return nil, apperrors.NewRateLimit(source, resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperrors.NewStatus(source, resp.StatusCode)
	}

	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetwork(source, "failed to read response body", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))

	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, apperrors.NewParsing(source, "failed to read converted UTF-8 body", err)
	}

	return &buf, nil
}
