package cli

import (
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the current market snapshot once and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Fetch(cmd.Context())
	},
}
