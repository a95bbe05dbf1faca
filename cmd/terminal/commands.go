package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/docwarden/internal/jobsclient"
)

const refreshInterval = 3 * time.Second

func loadJobsCmd(client *jobsclient.Client) tea.Cmd {
	return func() tea.Msg {
		jobs, err := client.List(context.Background())
		return jobsLoadedMsg{jobs: jobs, err: err}
	}
}

func loadArtifactCmd(client *jobsclient.Client, jobID string) tea.Cmd {
	return func() tea.Msg {
		content, err := client.Artifact(context.Background(), jobID)
		return artifactLoadedMsg{jobID: jobID, content: content, err: err}
	}
}

func submitJobCmd(client *jobsclient.Client, source, variant string) tea.Cmd {
	return func() tea.Msg {
		job, err := client.Submit(context.Background(), source, variant, "")
		return jobSubmittedMsg{job: job, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}
