// Package upload publishes stitched images and returns a durable URL.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alnah/go-pdfstitch/internal/fileutil"
)

// Sentinel errors for uploads.
var (
	ErrUpload        = errors.New("upload failed")
	ErrInvalidName   = errors.New("invalid object name")
	ErrInvalidConfig = errors.New("invalid storage configuration")
)

// Uploader publishes a local file under name and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
}

var (
	_ Uploader = (*Local)(nil)
	_ Uploader = (*GCS)(nil)
)

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, "\\\x00") || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Local copies files into a directory served by the HTTP server.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates dir if needed. baseURL is joined with the object name
// to build the returned URL; "/output" when empty.
func NewLocal(dir, baseURL string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: local directory is empty", ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, fileutil.DirPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if baseURL == "" {
		baseURL = "/output"
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory files are copied into.
func (l *Local) Dir() string { return l.dir }

// Upload copies localPath to dir/name atomically.
func (l *Local) Upload(ctx context.Context, localPath, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(localPath) // #nosec G304 -- path produced by the pipeline
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer src.Close()

	err = fileutil.WriteAtomic(filepath.Join(l.dir, name), func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	return l.baseURL + "/" + url.PathEscape(name), nil
}

// objectPath joins prefix and name with a single slash.
func objectPath(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
