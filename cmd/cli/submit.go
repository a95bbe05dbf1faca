package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	submitVariant  string
	submitCallerID string
)

var submitCmd = &cobra.Command{
	Use:   "submit <url>",
	Short: "Submit a repository for documentation generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		job, err := client.Submit(context.Background(), args[0], submitVariant, submitCallerID)
		if err != nil {
			return fmt.Errorf("submit job: %w", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(job)
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	submitCmd.Flags().StringVar(&submitVariant, "variant", "docs", "job variant: docs or docs+comments")
	submitCmd.Flags().StringVar(&submitCallerID, "caller-id", "", "opaque caller identifier recorded on the job for attribution")
	rootCmd.AddCommand(submitCmd)
}
