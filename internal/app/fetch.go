package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Fetch runs a single fetch + ingest cycle and prints the snapshot. With a
// configured database the observations are also persisted through the cache's
// write-through path.
func (a *App) Fetch(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	fetcher := a.newFetcher()
	snap, err := fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch market feed: %w", err)
	}

	historyCache := a.newCache(store)
	historyCache.Ingest(ctx, snap.Observations())

	fmt.Fprintf(os.Stdout, "source: %s\n", snap.Source)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Commodity\tLocation\tPrice\tChange\tChange%")
	for _, row := range snap.Rows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			row.Commodity, row.Location, row.Price, row.Change, row.ChangePercent)
	}
	return writer.Flush()
}
