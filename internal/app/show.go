package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent stored observations.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	total, err := store.CountObservations(ctx)
	if err != nil {
		return err
	}

	observations, err := store.GetRecent(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tCommodity\tLocation\tPrice\tChange\tChange%")

	for _, o := range observations {
		price := o.RawPrice
		if o.Price.Valid {
			price = o.Price.Decimal.StringFixed(2)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			o.CreatedAt.UTC().Format(time.RFC3339),
			o.Commodity,
			o.Location,
			price,
			o.Change,
			o.ChangePercent,
		)
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%d of %d stored observations\n", len(observations), total)
	return nil
}
