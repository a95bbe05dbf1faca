package main

import "github.com/sevigo/docwarden/internal/jobsclient"

// jobsLoadedMsg reports the result of a periodic job list refresh.
type jobsLoadedMsg struct {
	jobs []jobsclient.Job
	err  error
}

// artifactLoadedMsg reports the result of fetching a job's rendered
// artifact markdown for detail view.
type artifactLoadedMsg struct {
	jobID   string
	content string
	err     error
}

// jobSubmittedMsg reports the result of submitting a new job.
type jobSubmittedMsg struct {
	job jobsclient.Job
	err error
}

// tickMsg drives the periodic auto-refresh of the job list.
type tickMsg struct{}
