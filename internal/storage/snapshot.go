package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autoriascout/internal/scraper"
	apperrors "autoriascout/pkg/errors"
)

// SnapshotWriter exports one run's listings as an indented JSON file.
type SnapshotWriter struct {
	dir string
}

var _ scraper.Snapshotter = (*SnapshotWriter)(nil)

// NewSnapshotWriter creates a writer that puts snapshots under dir.
func NewSnapshotWriter(dir string) *SnapshotWriter {
	return &SnapshotWriter{dir: dir}
}

// Write serializes listings into autoria_cars_<timestamp>.json and returns
// the file path. An empty run still produces a (empty-array) snapshot.
func (w *SnapshotWriter) Write(listings []scraper.Listing, ts time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", apperrors.NewStorage("snapshot", "failed to create dumps dir", err)
	}

	if listings == nil {
		listings = []scraper.Listing{}
	}
	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return "", apperrors.NewStorage("snapshot", "failed to serialize listings", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("autoria_cars_%s.json", ts.Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", apperrors.NewStorage("snapshot", "failed to write snapshot", err)
	}
	return path, nil
}
