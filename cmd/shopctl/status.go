package main

import (
	"os"

	"github.com/spf13/cobra"

	shopassist "github.com/kailas-cloud/shopassist/pkg/sdk"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show server component health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		hs, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), hs); err != nil {
			return err
		}
		if !hs.Healthy() {
			os.Exit(1)
		}
		return nil
	},
}

var usagePeriod string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show embedding and chat token usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		report, err := client.Usage(cmd.Context(), shopassist.UsagePeriod(usagePeriod))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	usageCmd.Flags().StringVarP(&usagePeriod, "period", "p", "month", "day, month or total")
	rootCmd.AddCommand(healthCmd, usageCmd)
}
