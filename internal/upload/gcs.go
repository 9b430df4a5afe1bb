package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

const publicHost = "https://storage.googleapis.com"

// objectWriter opens a writer for one object. Close commits the upload.
type objectWriter func(ctx context.Context, object, contentType string) io.WriteCloser

// GCS streams files into a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	open   objectWriter
}

// NewGCS connects with Application Default Credentials.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: gcs bucket is empty", ErrInvalidConfig)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: creating storage client: %v", ErrUpload, err)
	}

	g := &GCS{client: client, bucket: bucket, prefix: prefix}
	g.open = func(ctx context.Context, object, ct string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = ct
		w.CacheControl = "public, max-age=31536000"
		return w
	}
	return g, nil
}

// Upload writes localPath to gs://bucket/prefix/name and returns the
// public object URL.
func (g *GCS) Upload(ctx context.Context, localPath, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	src, err := os.Open(localPath) // #nosec G304 -- path produced by the pipeline
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer src.Close()

	object := objectPath(g.prefix, name)
	w := g.open(ctx, object, contentType(name))
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("%w: writing gs://%s/%s: %v", ErrUpload, g.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: committing gs://%s/%s: %v", ErrUpload, g.bucket, object, err)
	}
	return PublicURL(g.bucket, object), nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// PublicURL returns the HTTPS URL of a public object.
func PublicURL(bucket, object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return publicHost + "/" + bucket + "/" + strings.Join(parts, "/")
}
