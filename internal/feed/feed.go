// Package feed retrieves raw commodity price rows from the upstream spot
// market page. Price and change values stay display-formatted strings here;
// parsing happens when rows are converted to observations.
package feed

import (
	"context"
	"time"

	"mandiwatch/internal/market"
)

// Row is one raw table row as published by the source.
type Row struct {
	Commodity     string `json:"commodity"`
	Location      string `json:"location"`
	Time          string `json:"time"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"changePercent"`
}

// Snapshot is the result of one fetch. Source labels provenance so the UI can
// distinguish live data from the fallback dataset.
type Snapshot struct {
	Rows      []Row     `json:"rows"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Fetcher retrieves the current upstream snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Observations converts raw rows into typed observations. Unparsable prices
// are retained with an invalid decimal rather than dropped or zeroed.
func (s Snapshot) Observations() []market.Observation {
	obs := make([]market.Observation, 0, len(s.Rows))
	for _, row := range s.Rows {
		obs = append(obs, market.Observation{
			Commodity:     row.Commodity,
			Location:      row.Location,
			Price:         market.ParsePrice(row.Price),
			RawPrice:      row.Price,
			Change:        row.Change,
			ChangePercent: row.ChangePercent,
			Timestamp:     s.FetchedAt,
		})
	}
	return obs
}
