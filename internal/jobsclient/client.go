// Package jobsclient is a thin HTTP client over the server's /v1/jobs API,
// shared by cmd/cli and cmd/terminal so neither talks to the Job Store or
// Task Broker directly.
package jobsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Job mirrors the JSON shape returned by the server's job handlers.
type Job struct {
	ID               string  `json:"id"`
	Source           string  `json:"source"`
	Variant          string  `json:"variant"`
	Status           string  `json:"status"`
	Error            *string `json:"error"`
	ArtifactURL      *string `json:"artifact_url"`
	PullRequestURL   *string `json:"pull_request_url"`
	BundleURL        *string `json:"bundle_url,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// Terminal reports whether the job has reached a status that will never
// change again.
func (j Job) Terminal() bool {
	return j.Status == "completed" || j.Status == "failed"
}

// Client is a minimal HTTP client for the docwarden job API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL, defaulting its request timeout the
// way the rest of the codebase sizes outbound HTTP clients.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) Submit(ctx context.Context, source, variant, callerID string) (Job, error) {
	body, err := json.Marshal(map[string]string{"source": source, "variant": variant, "caller_id": callerID})
	if err != nil {
		return Job{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return Job{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJob(req)
}

func (c *Client) Get(ctx context.Context, id string) (Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+id, nil)
	if err != nil {
		return Job{}, err
	}
	return c.doJob(req)
}

// listResponse mirrors the server's page envelope for GET /v1/jobs.
type listResponse struct {
	Jobs       []Job  `json:"jobs"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// List fetches the first page of jobs newest-first. Callers that need
// further pages should follow the server's next_cursor value directly
// against the HTTP API; the CLI and TUI only ever show the first page.
func (c *Client) List(ctx context.Context) ([]Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}
	return page.Jobs, nil
}

// Artifact fetches the rendered markdown for a completed job.
func (c *Client) Artifact(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+id+"/artifact", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) doJob(req *http.Request) (Job, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return Job{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Job{}, apiError(resp)
	}
	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("api returned %d: %s", resp.StatusCode, string(data))
}
