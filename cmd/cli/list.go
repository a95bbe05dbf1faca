package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listOutputJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists jobs, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		client := newAPIClient()
		jobs, err := client.List(context.Background())
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}

		if listOutputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(jobs)
		}

		if len(jobs) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tVARIANT\tSTATUS\tUPDATED")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", job.ID, job.Source, job.Variant, job.Status, job.UpdatedAt)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	listCmd.Flags().BoolVar(&listOutputJSON, "json", false, "Output list as JSON")
	rootCmd.AddCommand(listCmd)
}
