// Package ghpr opens pull requests carrying generated documentation
// artifacts, authenticating either with the job's own credential (a
// personal access token) or, when the caller supplied none, a GitHub App
// installation resolved for the target repository. It is the
// docs-plus-comments counterpart of the teacher's internal/github package,
// which reads pull requests for review rather than writing new ones.
package ghpr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/docwarden/internal/config"
)

// newClient authenticates as the job's credential when one is present,
// otherwise as the configured GitHub App installation for owner/repo.
func newClient(ctx context.Context, cfg config.GitHubConfig, credential, owner, repo string, log *slog.Logger) (*github.Client, error) {
	if credential != "" {
		return newPATClient(ctx, credential), nil
	}
	if cfg.AppID == 0 {
		return nil, fmt.Errorf("no per-job credential supplied and no github app configured")
	}
	return newInstallationClient(ctx, cfg, owner, repo, log)
}

func newPATClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc)
}

// newInstallationClient resolves the App installation for owner/repo and
// returns a client authenticated as that installation, mirroring the
// teacher's CreateInstallationClient but discovering the installation ID
// itself rather than receiving it from a webhook payload.
func newInstallationClient(ctx context.Context, cfg config.GitHubConfig, owner, repo string, log *slog.Logger) (*github.Client, error) {
	privateKey, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read github app private key: %w", err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.AppID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("create github app transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	installation, _, err := appClient.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("find app installation for %s/%s: %w", owner, repo, err)
	}

	log.Info("resolved github app installation", "owner", owner, "repo", repo, "installation_id", installation.GetID())

	itr := ghinstallation.NewFromAppsTransport(appTransport, installation.GetID())
	return github.NewClient(&http.Client{Transport: itr}), nil
}
