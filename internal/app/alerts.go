package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"mandiwatch/internal/alerts"
)

func (a *App) alertStore() (*alerts.FileStore, error) {
	if !a.Config.Alerting.Enabled {
		return nil, errors.New("alerting.enabled is false")
	}
	return alerts.NewFileStore(a.Config.Alerting.FilePath), nil
}

// AddAlert persists a new price alert.
func (a *App) AddAlert(_ context.Context, opts AlertOptions) error {
	store, err := a.alertStore()
	if err != nil {
		return err
	}

	if opts.Commodity == "" {
		return errors.New("--commodity is required")
	}
	target, err := decimal.NewFromString(opts.TargetPrice)
	if err != nil {
		return fmt.Errorf("invalid --target value: %w", err)
	}
	if !target.IsPositive() {
		return errors.New("--target must be greater than zero")
	}
	condition, err := alerts.ParseCondition(opts.Condition)
	if err != nil {
		return err
	}

	alert := alerts.New(opts.Commodity, target, condition)
	if err := store.Add(alert); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alert %s created: %s %s %s\n",
		alert.ID, alert.Commodity, alert.Condition, alert.TargetPrice.StringFixed(2))
	return nil
}

// ListAlerts prints the persisted alert list.
func (a *App) ListAlerts(_ context.Context) error {
	store, err := a.alertStore()
	if err != nil {
		return err
	}

	list, err := store.Load()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts configured")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tCommodity\tCondition\tTarget\tActive\tTriggered\tCreated (UTC)")
	for _, alert := range list {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%t\t%t\t%s\n",
			alert.ID,
			alert.Commodity,
			alert.Condition,
			alert.TargetPrice.StringFixed(2),
			alert.IsActive,
			alert.Triggered,
			alert.CreatedAt.UTC().Format(time.RFC3339),
		)
	}
	return writer.Flush()
}

// ToggleAlert flips an alert's active flag.
func (a *App) ToggleAlert(_ context.Context, id string) error {
	store, err := a.alertStore()
	if err != nil {
		return err
	}

	alert, err := store.Toggle(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "alert %s active=%t\n", alert.ID, alert.IsActive)
	return nil
}

// DeleteAlert removes an alert by id.
func (a *App) DeleteAlert(_ context.Context, id string) error {
	store, err := a.alertStore()
	if err != nil {
		return err
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "alert %s deleted\n", id)
	return nil
}

// CheckAlerts runs one evaluation cycle against the latest stored prices.
func (a *App) CheckAlerts(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	checker := a.newChecker(store)
	if checker == nil {
		return errors.New("alerting.enabled is false")
	}

	updated, err := checker.Check(ctx)
	if err != nil {
		return err
	}

	triggered := 0
	for _, alert := range updated {
		if alert.Triggered {
			triggered++
		}
	}
	fmt.Fprintf(os.Stdout, "%d alerts evaluated, %d triggered\n", len(updated), triggered)
	return nil
}
