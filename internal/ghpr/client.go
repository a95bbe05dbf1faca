package ghpr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/gitutil"
)

// File is one path/content pair to commit onto the new branch.
type File struct {
	Path    string
	Content string
}

// Client opens documentation pull requests against a single repository.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
	log   *slog.Logger
}

// New resolves authentication for locator and returns a Client scoped to
// its owner/repo.
func New(ctx context.Context, cfg config.GitHubConfig, credential, locator string, log *slog.Logger) (*Client, error) {
	owner, repo, err := gitutil.ParseRepoLocator(locator)
	if err != nil {
		return nil, err
	}

	gh, err := newClient(ctx, cfg, credential, owner, repo, log)
	if err != nil {
		return nil, err
	}

	return &Client{gh: gh, owner: owner, repo: repo, log: log}, nil
}

// OpenPullRequest commits files onto a new branch off baseBranch and opens
// a pull request for it, in the standard go-github Git Data API sequence:
// resolve the base ref, create blobs and a tree, commit, create the ref,
// then open the pull request.
func (c *Client) OpenPullRequest(ctx context.Context, baseBranch, branchName, commitMessage, title, body string, files []File) (string, error) {
	baseRef, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+baseBranch)
	if err != nil {
		return "", fmt.Errorf("get base ref: %w", err)
	}

	entries := make([]*github.TreeEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, &github.TreeEntry{
			Path:    github.Ptr(f.Path),
			Mode:    github.Ptr("100644"),
			Type:    github.Ptr("blob"),
			Content: github.Ptr(f.Content),
		})
	}

	tree, _, err := c.gh.Git.CreateTree(ctx, c.owner, c.repo, baseRef.GetObject().GetSHA(), entries)
	if err != nil {
		return "", fmt.Errorf("create tree: %w", err)
	}

	commit, _, err := c.gh.Git.CreateCommit(ctx, c.owner, c.repo, &github.Commit{
		Message: github.Ptr(commitMessage),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: baseRef.GetObject().SHA}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("create commit: %w", err)
	}

	newRef := "refs/heads/" + branchName
	_, _, err = c.gh.Git.CreateRef(ctx, c.owner, c.repo, &github.Reference{
		Ref:    github.Ptr(newRef),
		Object: &github.GitObject{SHA: commit.SHA},
	})
	if err != nil {
		return "", fmt.Errorf("create branch %s: %w", branchName, err)
	}

	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(branchName),
		Base:  github.Ptr(baseBranch),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return "", fmt.Errorf("create pull request: %w", err)
	}

	return pr.GetHTMLURL(), nil
}

// BranchName produces a unique branch name for a job's generated PR.
func BranchName(jobID string) string {
	return fmt.Sprintf("docwarden/%s-%d", jobID, time.Now().UnixNano())
}
