package cli

import (
	"github.com/spf13/cobra"

	"mandiwatch/internal/app"
	"mandiwatch/internal/history"
)

var (
	exportCommodity string
	exportLocation  string
	exportRange     string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export day-grouped commodity history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Commodity: exportCommodity,
			Location:  exportLocation,
			Range:     history.Range(exportRange),
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCommodity, "commodity", "", "Commodity to export (required)")
	exportCmd.Flags().StringVar(&exportLocation, "location", "", "Restrict to a single market location")
	exportCmd.Flags().StringVar(&exportRange, "range", "30d", "Trailing window: 7d, 30d, 90d, or all")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
