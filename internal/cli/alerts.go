package cli

import (
	"github.com/spf13/cobra"

	"mandiwatch/internal/app"
)

var (
	alertCommodity string
	alertTarget    string
	alertCondition string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage price alerts",
}

var alertsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a price alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AlertOptions{
			Commodity:   alertCommodity,
			TargetPrice: alertTarget,
			Condition:   alertCondition,
		}
		return getApp().AddAlert(cmd.Context(), opts)
	},
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListAlerts(cmd.Context())
	},
}

var alertsToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip an alert's active flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ToggleAlert(cmd.Context(), args[0])
	},
}

var alertsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().DeleteAlert(cmd.Context(), args[0])
	},
}

var alertsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate alerts against the latest stored prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckAlerts(cmd.Context())
	},
}

func init() {
	alertsAddCmd.Flags().StringVar(&alertCommodity, "commodity", "", "Commodity name to match (required)")
	alertsAddCmd.Flags().StringVar(&alertTarget, "target", "", "Target price threshold (required)")
	alertsAddCmd.Flags().StringVar(&alertCondition, "condition", "above", "Trigger condition: above or below")

	alertsCmd.AddCommand(alertsAddCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsToggleCmd)
	alertsCmd.AddCommand(alertsDeleteCmd)
	alertsCmd.AddCommand(alertsCheckCmd)
}
