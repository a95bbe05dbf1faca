package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusOutputJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Shows the status of a single job",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client := newAPIClient()
		job, err := client.Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		if statusOutputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(job)
		}

		printJobLine(job)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&statusOutputJSON, "json", false, "Output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
