// Package storage persists price observations in PostgreSQL. The table is
// append-only: no component updates or deletes observation rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mandiwatch/internal/market"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertObservationSQL = `INSERT INTO price_observations (
        commodity,
        location,
        price,
        raw_price,
        change,
        change_percent,
        observed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	listRecentObservationsSQL = `SELECT
        commodity,
        location,
        price,
        raw_price,
        change,
        change_percent,
        observed_at,
        created_at
    FROM price_observations
    ORDER BY created_at DESC
    LIMIT $1;`

	listCommodityHistorySQL = `SELECT
        commodity,
        location,
        price,
        raw_price,
        change,
        change_percent,
        observed_at,
        created_at
    FROM price_observations
    WHERE commodity = $1
      AND created_at >= $2
    ORDER BY created_at DESC;`

	listCommodityAllSQL = `SELECT
        commodity,
        location,
        price,
        raw_price,
        change,
        change_percent,
        observed_at,
        created_at
    FROM price_observations
    WHERE commodity = $1
    ORDER BY created_at DESC;`

	countObservationsSQL = `SELECT COUNT(*) FROM price_observations;`
)

// StoreResult reports the outcome of a batch write. Writes are independent
// inserts: earlier rows that succeeded are kept when a later row fails, and
// Err carries the first failure for the caller to inspect. This is the
// at-least-once, non-atomic contract the read side is built around.
type StoreResult struct {
	Stored int
	Err    error
}

// OK reports whether the whole batch was written.
func (r StoreResult) OK() bool { return r.Err == nil }

// ObservationStore defines the durable operations the cache and alert checker
// depend on.
type ObservationStore interface {
	StoreObservations(ctx context.Context, batch []market.Observation) StoreResult
	GetRecent(ctx context.Context, limit int) ([]market.Observation, error)
	GetHistory(ctx context.Context, commodity string, windowDays int) ([]market.Observation, error)
	CountObservations(ctx context.Context) (int64, error)
}

// Store provides pgx-backed observation persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// StoreObservations writes each observation as an independent row with a
// server-assigned created_at. Rows are pipelined in one batch; a failure in
// one insert does not roll back the others.
func (s *Store) StoreObservations(ctx context.Context, batch []market.Observation) StoreResult {
	pool, err := s.getPool()
	if err != nil {
		return StoreResult{Err: err}
	}
	if len(batch) == 0 {
		return StoreResult{}
	}

	pgBatch := &pgx.Batch{}
	for _, o := range batch {
		var price interface{}
		if o.Price.Valid {
			price = o.Price.Decimal.String()
		}
		pgBatch.Queue(insertObservationSQL,
			o.Commodity,
			o.Location,
			price,
			o.RawPrice,
			o.Change,
			o.ChangePercent,
			o.Timestamp,
		)
	}

	results := pool.SendBatch(ctx, pgBatch)
	defer results.Close()

	var res StoreResult
	for range batch {
		if _, execErr := results.Exec(); execErr != nil {
			if res.Err == nil {
				res.Err = fmt.Errorf("store observation: %w", execErr)
			}
			continue
		}
		res.Stored++
	}
	return res
}

// GetRecent returns up to limit most-recently-created observations across all
// commodities, newest-first.
func (s *Store) GetRecent(ctx context.Context, limit int) ([]market.Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentObservationsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent observations: %w", queryErr)
	}
	defer rows.Close()

	return scanObservations(rows, limit)
}

// GetHistory returns all observations for commodity whose creation time falls
// within the trailing windowDays, newest-first. A non-positive window means
// no time filter.
func (s *Store) GetHistory(ctx context.Context, commodity string, windowDays int) ([]market.Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	var queryErr error
	if windowDays > 0 {
		since := time.Now().UTC().AddDate(0, 0, -windowDays)
		rows, queryErr = pool.Query(ctx, listCommodityHistorySQL, commodity, since)
	} else {
		rows, queryErr = pool.Query(ctx, listCommodityAllSQL, commodity)
	}
	if queryErr != nil {
		return nil, fmt.Errorf("list commodity history: %w", queryErr)
	}
	defer rows.Close()

	return scanObservations(rows, 0)
}

// CountObservations counts stored observations.
func (s *Store) CountObservations(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countObservationsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count observations: %w", scanErr)
	}
	return count, nil
}

func scanObservations(rows pgx.Rows, capacity int) ([]market.Observation, error) {
	obs := make([]market.Observation, 0, capacity)
	for rows.Next() {
		o, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		obs = append(obs, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return obs, nil
}

func scanObservation(rows pgx.Rows) (market.Observation, error) {
	var (
		commodity     string
		location      string
		priceStr      sql.NullString
		rawPrice      string
		change        string
		changePercent sql.NullString
		observedAt    time.Time
		createdAt     time.Time
	)

	if err := rows.Scan(
		&commodity,
		&location,
		&priceStr,
		&rawPrice,
		&change,
		&changePercent,
		&observedAt,
		&createdAt,
	); err != nil {
		return market.Observation{}, err
	}

	o := market.Observation{
		Commodity: commodity,
		Location:  location,
		RawPrice:  rawPrice,
		Change:    change,
		Timestamp: observedAt,
		CreatedAt: createdAt,
	}
	if changePercent.Valid {
		o.ChangePercent = changePercent.String
	}
	if priceStr.Valid {
		o.Price = market.ParsePrice(priceStr.String)
	}

	return o, nil
}
