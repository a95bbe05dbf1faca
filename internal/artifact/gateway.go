// Package artifact provides the Artifact Store Gateway (C7): an
// S3-compatible object storage client that degrades to a local-filesystem
// path when unconfigured, so a docs-only submission works out of the box
// without cloud credentials.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sevigo/docwarden/internal/config"
)

// Gateway is the storage abstraction consumed by the Publish stage tool. It
// never fails a docs-only job on a storage error; the caller decides how to
// treat that per Variant.
type Gateway struct {
	cfg    config.ArtifactStoreConfig
	client *s3.Client
	log    *slog.Logger
}

// New constructs a Gateway. When cfg.Enabled is false or the bucket/region
// are unset, Configured reports false and Put falls back to the local path.
func New(ctx context.Context, cfg config.ArtifactStoreConfig, log *slog.Logger) (*Gateway, error) {
	gw := &Gateway{cfg: cfg, log: log}

	if !gw.Configured() {
		return gw, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	gw.client = s3.NewFromConfig(awsCfg)
	return gw, nil
}

// Configured reports whether the gateway has a usable S3 target.
func (g *Gateway) Configured() bool {
	return g.cfg.Enabled && g.cfg.Bucket != "" && g.cfg.Region != ""
}

// artifactCacheControl is the cache directive S5 attaches to every published
// artifact: readmes and bundles are immutable once a job completes, so a
// downstream CDN or browser can cache them for an hour without revalidation.
const artifactCacheControl = "max-age=3600"

// Put always writes content under key to the local artifact directory, and
// when the gateway is configured also uploads it and returns the uploaded
// object's externally addressable URL. When the gateway is not configured,
// or the upload fails, it returns the local copy's file-scheme URL; the
// caller decides whether that fallback is acceptable for the variant it is
// serving.
func (g *Gateway) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	localURL, localErr := g.putLocal(key, content)
	if g.Configured() {
		_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:       aws.String(g.cfg.Bucket),
			Key:          aws.String(key),
			Body:         bytes.NewReader(content),
			ContentType:  aws.String(contentType),
			CacheControl: aws.String(artifactCacheControl),
			ACL:          types.ObjectCannedACLPublicRead,
		})
		if err == nil {
			return g.publicURL(key), nil
		}
		g.log.Warn("artifact store put failed, falling back to local path", "key", key, "error", err)
	}

	return localURL, localErr
}

// Delete removes a previously published artifact, best-effort: the uploaded
// object when the gateway is configured, otherwise the local copy.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	if g.Configured() {
		_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(key),
		})
		return err
	}
	path := g.localPath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (g *Gateway) publicURL(key string) string {
	if g.cfg.BaseURL != "" {
		return strings.TrimRight(g.cfg.BaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.cfg.Bucket, g.cfg.Region, key)
}

func (g *Gateway) localPath(key string) string {
	root := g.cfg.LocalPath
	if root == "" {
		root = "data/artifacts"
	}
	return filepath.Join(root, filepath.FromSlash(key))
}

func (g *Gateway) putLocal(key string, content []byte) (string, error) {
	path := g.localPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create local artifact dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write local artifact: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs, nil
}
