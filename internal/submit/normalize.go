// Package submit implements the inbound job submission path: locator
// normalization and idempotent Job creation.
package submit

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeLocator canonicalizes a repository source locator so equivalent
// spellings collapse to the same string before the uniqueness check in
// internal/core.JobStore.Create. It lowercases the host, strips a
// "www." prefix, a trailing "/" or ".git" suffix, and the default port
// for the scheme.
func NormalizeLocator(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty source locator")
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid source locator %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported source locator scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	port := u.Port()
	if isDefaultPort(u.Scheme, port) {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}

	path := strings.TrimSuffix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	if path == "" {
		return "", fmt.Errorf("source locator %q has no repository path", raw)
	}

	return fmt.Sprintf("%s://%s%s", strings.ToLower(u.Scheme), host, path), nil
}

func isDefaultPort(scheme, port string) bool {
	switch {
	case port == "":
		return true
	case scheme == "http" && port == "80":
		return true
	case scheme == "https" && port == "443":
		return true
	default:
		return false
	}
}
