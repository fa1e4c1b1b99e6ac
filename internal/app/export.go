package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"mandiwatch/internal/history"
	"mandiwatch/internal/market"
)

// Export renders day-grouped commodity history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Commodity == "" {
		return errors.New("--commodity is required")
	}
	if opts.Range == "" {
		opts.Range = history.Range30d
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	windowDays := 0
	if d, bounded := opts.Range.Duration(); bounded {
		windowDays = int(d / (24 * time.Hour))
	}

	series, err := store.GetHistory(ctx, opts.Commodity, windowDays)
	if err != nil {
		return err
	}
	if opts.Location != "" {
		series = filterLocation(series, opts.Location)
	}
	if len(series) == 0 {
		a.Logger.Info().Str("commodity", opts.Commodity).Msg("no observations found for export window")
		return nil
	}
	market.SortByTimestamp(series)

	engine := history.NewEngine(nil)
	points := engine.GroupByDay(series)
	points = downsamplePoints(points, opts.MaxPoints)

	a.Logger.Info().
		Int("observations", len(series)).
		Int("exported", len(points)).
		Msg("exporting day-grouped history")

	if opts.CSVPath != "" {
		if err := writePointsCSV(opts.CSVPath, opts.Commodity, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePointsPNG(opts.PNGPath, opts.Commodity, points); err != nil {
			return err
		}
	}

	return nil
}

func filterLocation(series []market.Observation, location string) []market.Observation {
	filtered := series[:0]
	for _, o := range series {
		if o.Location == location {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

func downsamplePoints(points []history.DayPoint, max int) []history.DayPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]history.DayPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writePointsCSV(path, commodity string, points []history.DayPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "commodity", "avg_price", "change"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range points {
		record := []string{
			p.Date.Format("2006-01-02"),
			commodity,
			p.AvgPrice.StringFixed(2),
			p.Change,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePointsPNG(path, commodity string, points []history.DayPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	avg := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Date
		avg[i] = p.AvgPrice.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Avg price (Rs/quintal)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    fmt.Sprintf("%s daily average", commodity),
				XValues: x,
				YValues: avg,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
