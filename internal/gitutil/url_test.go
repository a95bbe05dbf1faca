package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepoLocator(t *testing.T) {
	tests := []struct {
		name      string
		locator   string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "https URL",
			locator:   "https://github.com/sevigo/docwarden",
			wantOwner: "sevigo",
			wantRepo:  "docwarden",
		},
		{
			name:      "https URL with .git suffix",
			locator:   "https://github.com/sevigo/docwarden.git",
			wantOwner: "sevigo",
			wantRepo:  "docwarden",
		},
		{
			name:      "ssh shorthand",
			locator:   "git@github.com:sevigo/docwarden.git",
			wantOwner: "sevigo",
			wantRepo:  "docwarden",
		},
		{
			name:      "trailing slash",
			locator:   "https://github.com/sevigo/docwarden/",
			wantOwner: "sevigo",
			wantRepo:  "docwarden",
		},
		{
			name:    "not a github url",
			locator: "https://example.com/sevigo/docwarden",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoLocator(tt.locator)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestParsePullRequestURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantID    int
		wantErr   bool
	}{
		{
			name:      "Valid HTTPS URL",
			url:       "https://github.com/octocat/hello-world/pull/123",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
			wantID:    123,
			wantErr:   false,
		},
		{
			name:      "Valid URL without scheme",
			url:       "github.com/octocat/hello-world/pull/456",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
			wantID:    456,
			wantErr:   false,
		},
		{
			name:      "URL with trailing slash",
			url:       "https://github.com/octocat/hello-world/pull/789/",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
			wantID:    789,
			wantErr:   false,
		},
		{
			name:    "Invalid PR ID",
			url:     "https://github.com/octocat/hello-world/pull/abc",
			wantErr: true,
		},
		{
			name:    "Invalid format (missing pull)",
			url:     "https://github.com/octocat/hello-world/issues/123",
			wantErr: true,
		},
		{
			name:    "Invalid format (too many segments)",
			url:     "https://github.com/octocat/hello-world/pull/123/files",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, id, err := ParsePullRequestURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantOwner, owner)
				assert.Equal(t, tt.wantRepo, repo)
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}
