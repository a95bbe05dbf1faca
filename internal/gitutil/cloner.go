// Package gitutil provides a client for working with Git repositories.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Client handles interacting with Git repositories.
type Client struct {
	Logger *slog.Logger
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger}
}

// FetchResult is the metadata captured from a shallow clone.
type FetchResult struct {
	Branch        string
	Revision      string
	CommitAuthor  string
	CommitMessage string
}

// CloneShallow clones the default branch of repoURL into path with depth 1,
// the way the Fetch stage populates a worker's workspace: single branch,
// single commit, no history. token is optional; when empty the clone is
// attempted unauthenticated.
func (c *Client) CloneShallow(ctx context.Context, repoURL, path, token string) (FetchResult, error) {
	authURL, err := c.getAuthenticatedURL(repoURL, token)
	if err != nil {
		return FetchResult{}, err
	}

	c.Logger.InfoContext(ctx, "shallow cloning repository", "url", repoURL, "path", path)
	cmd := exec.CommandContext(ctx, "git", "-c", "core.longpaths=true",
		"clone", "--depth", "1", "--single-branch", authURL, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return FetchResult{}, fmt.Errorf("git clone failed: %s: %w", string(out), err)
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return FetchResult{}, fmt.Errorf("open cloned repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return FetchResult{}, fmt.Errorf("read HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return FetchResult{}, fmt.Errorf("read HEAD commit: %w", err)
	}

	branch := head.Name().Short()
	message := commit.Message
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx]
	}

	return FetchResult{
		Branch:        branch,
		Revision:      head.Hash().String(),
		CommitAuthor:  commit.Author.Name,
		CommitMessage: strings.TrimSpace(message),
	}, nil
}

func (c *Client) getAuthenticatedURL(repoURL, token string) (string, error) {
	// Handle local paths directly. file:// is intentionally unsupported for security.
	if !strings.Contains(repoURL, "://") {
		return repoURL, nil
	}

	if !strings.HasPrefix(repoURL, "https://") && !strings.HasPrefix(repoURL, "http://") {
		return "", fmt.Errorf("invalid repository URL: %s", repoURL)
	}
	if token == "" {
		return repoURL, nil
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse repository URL '%s': %w", repoURL, err)
	}
	parsedURL.User = url.UserPassword("x-access-token", token)
	return parsedURL.String(), nil
}
