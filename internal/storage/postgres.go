package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoriascout/internal/scraper"
	"autoriascout/logger"
	apperrors "autoriascout/pkg/errors"
)

// uniqueViolation is the SQLSTATE for unique-constraint conflicts.
const uniqueViolation = "23505"

// Store is the durable record store for scraped listings, backed by Postgres.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

var _ scraper.Sink = (*Store)(nil)

// NewStore connects to Postgres and verifies the connection.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperrors.NewStorage("store", "failed to create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStorage("store", "failed to connect to postgres", err)
	}

	return &Store{pool: pool, log: logger.ForStore()}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the cars table and its indexes if they do not exist.
// The (url, vin) pair is the dedup key; url alone is the upsert key.
func (s *Store) EnsureSchema(ctx context.Context) error {
	sql := `
	CREATE TABLE IF NOT EXISTS cars (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		price_usd INTEGER NOT NULL DEFAULT 0,
		odometer INTEGER NOT NULL DEFAULT 0,
		seller_name TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		images_count INTEGER NOT NULL DEFAULT 0,
		plate_number TEXT,
		vin TEXT,
		found_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT cars_url_vin_key UNIQUE (url, vin)
	);

	CREATE INDEX IF NOT EXISTS idx_cars_url ON cars(url);
	CREATE INDEX IF NOT EXISTS idx_cars_vin ON cars(vin);
	CREATE INDEX IF NOT EXISTS idx_cars_found_at ON cars(found_at);
	`

	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return apperrors.NewStorage("store", "failed to ensure schema", err)
	}
	return nil
}

// Upsert inserts or refreshes one listing keyed by url. An existing row with
// the same url is updated in place; a (url, vin) unique conflict on insert is
// reported as a skip via a typed duplicate error.
func (s *Store) Upsert(ctx context.Context, l *scraper.Listing) (scraper.UpsertResult, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cars
		 SET title = $2, price_usd = $3, odometer = $4, seller_name = $5,
		     phone_number = $6, image_url = $7, images_count = $8,
		     plate_number = $9, vin = $10
		 WHERE url = $1`,
		l.URL, l.Title, l.PriceUSD, l.OdometerKM, l.SellerName,
		l.PhoneNumber, l.ImageURL, l.ImagesCount, l.PlateNumber, l.VIN,
	)
	if err != nil {
		return scraper.UpsertSkipped, apperrors.NewStorage("store", "update failed", err)
	}
	if tag.RowsAffected() > 0 {
		return scraper.UpsertUpdated, nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO cars (url, title, price_usd, odometer, seller_name,
		                   phone_number, image_url, images_count, plate_number,
		                   vin, found_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.URL, l.Title, l.PriceUSD, l.OdometerKM, l.SellerName,
		l.PhoneNumber, l.ImageURL, l.ImagesCount, l.PlateNumber, l.VIN,
		l.FoundAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return scraper.UpsertSkipped, apperrors.NewDuplicate("store", "listing already exists", err)
		}
		return scraper.UpsertSkipped, apperrors.NewStorage("store", "insert failed", err)
	}
	return scraper.UpsertCreated, nil
}

// Stats aggregates the store for the stats endpoint.
type Stats struct {
	TotalCars       int      `json:"total_cars"`
	AveragePrice    *float64 `json:"average_price"`
	MaxPrice        *int     `json:"max_price"`
	MinPrice        *int     `json:"min_price"`
	AverageOdometer *float64 `json:"average_odometer"`
}

// Stats returns aggregate figures over all stored cars. Averages and extremes
// are nil while the table is empty.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), AVG(price_usd), MAX(price_usd), MIN(price_usd), AVG(odometer)
		 FROM cars`,
	).Scan(&stats.TotalCars, &stats.AveragePrice, &stats.MaxPrice, &stats.MinPrice, &stats.AverageOdometer)
	if err != nil {
		return Stats{}, apperrors.NewStorage("store", "stats query failed", err)
	}
	return stats, nil
}

// Recent returns the newest listings, most recently found first.
func (s *Store) Recent(ctx context.Context, limit int) ([]scraper.Listing, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT url, title, price_usd, odometer, seller_name, phone_number,
		        image_url, images_count, COALESCE(plate_number, ''),
		        COALESCE(vin, ''), found_at
		 FROM cars
		 ORDER BY found_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, apperrors.NewStorage("store", "recent query failed", err)
	}
	defer rows.Close()

	var listings []scraper.Listing
	for rows.Next() {
		var l scraper.Listing
		if err := rows.Scan(
			&l.URL, &l.Title, &l.PriceUSD, &l.OdometerKM, &l.SellerName,
			&l.PhoneNumber, &l.ImageURL, &l.ImagesCount, &l.PlateNumber,
			&l.VIN, &l.FoundAt,
		); err != nil {
			return nil, apperrors.NewStorage("store", "scan failed", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
