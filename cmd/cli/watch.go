package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Polls a job until it reaches a terminal status",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client := newAPIClient()
		ctx := context.Background()

		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()

		for {
			job, err := client.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get job: %w", err)
			}
			printJobLine(job)

			if job.Terminal() {
				return nil
			}
			<-ticker.C
		}
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(watchCmd)
}

func printJobLine(job jobDTO) {
	line := fmt.Sprintf("%s  %s  %s", job.ID, statusColor(job.Status), job.Source)
	if job.ArtifactURL != nil {
		line += "  artifact=" + *job.ArtifactURL
	}
	if job.Error != nil {
		line += "  " + color.RedString("error=%s", *job.Error)
	}
	fmt.Println(line)
}

func statusColor(status string) string {
	padded := fmt.Sprintf("%-9s", status)
	switch status {
	case "completed":
		return color.GreenString(padded)
	case "failed":
		return color.RedString(padded)
	case "processing":
		return color.CyanString(padded)
	default:
		return color.YellowString(padded)
	}
}
