package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoriascout/internal/scraper"
	"autoriascout/internal/storage"
	apperrors "autoriascout/pkg/errors"
)

// recordingSink keeps everything upserted, enforcing (url, vin) uniqueness.
type recordingSink struct {
	mu    sync.Mutex
	rows  map[string]scraper.Listing
	pairs map[string]bool
}

var _ scraper.Sink = (*recordingSink)(nil)

func newRecordingSink() *recordingSink {
	return &recordingSink{
		rows:  make(map[string]scraper.Listing),
		pairs: make(map[string]bool),
	}
}

func (s *recordingSink) Upsert(_ context.Context, l *scraper.Listing) (scraper.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[l.URL]; ok {
		s.rows[l.URL] = *l
		return scraper.UpsertUpdated, nil
	}
	pair := l.URL + "|" + l.VIN
	if s.pairs[pair] {
		return scraper.UpsertSkipped, apperrors.NewDuplicate("store", "listing already exists", nil)
	}
	s.rows[l.URL] = *l
	s.pairs[pair] = true
	return scraper.UpsertCreated, nil
}

const detailWithScriptPhone = `<html><body>
	<h1 class="head">Renault Megane</h1>
	<div class="price_value"><strong>8 200 $</strong></div>
	<div class="base-information"><span>177 тис.</span></div>
	<script>window.__INITIAL_STATE__ = {"seller": {"phone": "+380501234567"}};</script>
</body></html>`

// TestCrawlEndToEnd runs the whole pipeline against a two-page fixture site:
// page 1 has three cards (two with resolvable links, one without), page 2 has
// none. A detail page with no phone markup but a JSON phone in a script tag
// must still yield the normalized number.
func TestCrawlEndToEnd(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/car/1":
			w.Write([]byte(detailWithScriptPhone))
		case "/car/2":
			w.Write([]byte(`<html><body>
				<h1 class="head">Skoda Octavia</h1>
				<div class="price_value"><strong>12 900 $</strong></div>
				<div class="phone_block">+380 (96) 555-44-33</div>
				<div class="photo-620x465"><img src="https://cdn.example.com/2a.jpg"></div>
				<div class="photo-620x465"><img src="https://cdn.example.com/2b.jpg"></div>
			</body></html>`))
		default:
			if r.URL.Query().Get("page") == "2" {
				w.Write([]byte(`<html><body></body></html>`))
				return
			}
			w.Write([]byte(fmt.Sprintf(`<html><body>
				<section class="ticket-item">
					<a class="address" href="%s/car/1"><span class="blue">Renault Megane 2015</span></a>
				</section>
				<section class="ticket-item">
					<a class="address" href="%s/car/2"><span class="blue">Skoda Octavia 2017</span></a>
				</section>
				<section class="ticket-item">
					<span class="blue bold">Unlinked card</span>
				</section>
			</body></html>`, server.URL, server.URL)))
		}
	}))
	defer server.Close()

	sink := newRecordingSink()
	dumpsDir := t.TempDir()
	s := scraper.New(scraper.Options{
		StartURL:  server.URL,
		Sink:      sink,
		Snapshots: storage.NewSnapshotWriter(dumpsDir),
	})

	result, err := s.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, scraper.ReasonExhausted, result.Reason)
	assert.Len(t, sink.rows, result.Total)

	megane := sink.rows[server.URL+"/car/1"]
	assert.Equal(t, "Renault Megane 2015", megane.Title)
	assert.Equal(t, 8200, megane.PriceUSD)
	assert.Equal(t, 177000, megane.OdometerKM)
	assert.Equal(t, "+380501234567", megane.PhoneNumber)

	octavia := sink.rows[server.URL+"/car/2"]
	assert.Equal(t, "+380965554433", octavia.PhoneNumber)
	assert.Equal(t, "https://cdn.example.com/2a.jpg", octavia.ImageURL)
	assert.Equal(t, 2, octavia.ImagesCount)

	// one snapshot for the whole run, holding both listings
	entries, err := os.ReadDir(dumpsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^autoria_cars_\d{8}_\d{6}\.json$`, entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dumpsDir, entries[0].Name()))
	require.NoError(t, err)
	var exported []scraper.Listing
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Len(t, exported, 2)
}

// TestCrawlTransportFailureTolerance injects a dead endpoint for exactly one
// of five detail URLs; the run must finish with the remaining four.
func TestCrawlTransportFailureTolerance(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/car/3":
			// never reached; the card for this slot points at the dead server
			w.WriteHeader(http.StatusTeapot)
		case len(r.URL.Path) > len("/car/"):
			w.Write([]byte(fmt.Sprintf(`<html><body>
				<div class="seller_info_name">seller%s</div>
			</body></html>`, r.URL.Path[len("/car/"):])))
		default:
			if r.URL.Query().Get("page") == "2" {
				w.Write([]byte(`<html><body></body></html>`))
				return
			}
			cards := ""
			for i := 1; i <= 5; i++ {
				base := server.URL
				if i == 3 {
					base = deadURL
				}
				cards += fmt.Sprintf(`<section class="ticket-item">
					<a class="address" href="%s/car/%d"><span class="blue">Car %d</span></a>
				</section>`, base, i, i)
			}
			w.Write([]byte("<html><body>" + cards + "</body></html>"))
		}
	}))
	defer server.Close()

	sink := newRecordingSink()
	s := scraper.New(scraper.Options{
		StartURL:  server.URL,
		Sink:      sink,
		Snapshots: storage.NewSnapshotWriter(t.TempDir()),
	})

	result, err := s.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, scraper.ReasonExhausted, result.Reason)
	assert.Len(t, sink.rows, 4)
	for _, i := range []int{1, 2, 4, 5} {
		l, ok := sink.rows[fmt.Sprintf("%s/car/%d", server.URL, i)]
		require.True(t, ok, "car %d missing", i)
		assert.Equal(t, fmt.Sprintf("seller%d", i), l.SellerName)
	}
	_, ok := sink.rows[deadURL+"/car/3"]
	assert.False(t, ok)
}
