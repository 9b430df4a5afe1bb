package main

// Notes:
// - buildServer: we wire the real server against a temp config (local
//   storage, temp work dir) and drive it through Handler(); the listener
//   itself is covered by the server package.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-pdfstitch/internal/config"
)

func writeServeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	storage := filepath.Join(dir, "published")
	yaml := "server:\n  addr: 127.0.0.1:0\nstorage:\n  backend: local\n  dir: " + storage +
		"\nrender:\n  workDir: " + filepath.Join(dir, "work") + "\n"
	path := filepath.Join(dir, "serve.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, storage
}

// ---------------------------------------------------------------------------
// TestBuildServer - Wiring config, pool and storage
// ---------------------------------------------------------------------------

func TestBuildServer(t *testing.T) {
	t.Parallel()

	cfgPath, storage := writeServeConfig(t)
	env, stdout, _ := testEnv(t)

	srv, pool, closeStorage, err := buildServer(context.Background(), []string{"-c", cfgPath, "-w", "2"}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Close()
		_ = closeStorage()
	})

	if pool.Size() != 2 {
		t.Errorf("pool size = %d, want 2", pool.Size())
	}
	if !strings.Contains(stdout.String(), "listening on 127.0.0.1:0 (2 workers, local storage)") {
		t.Errorf("startup line = %q", stdout.String())
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("document", "upload.pdf")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("%PDF-1.7\n%multipart\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/stitch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success      bool   `json:"success"`
		ImageURL     string `json:"imageUrl"`
		OptimizedURL string `json:"optimizedUrl"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Width != 50 || resp.Height != 50 {
		t.Errorf("response = %+v", resp)
	}
	if !strings.HasSuffix(resp.OptimizedURL, "-optimized.jpg") {
		t.Errorf("optimizedUrl = %q", resp.OptimizedURL)
	}

	published, err := filepath.Glob(filepath.Join(storage, "stitched-*.png"))
	if err != nil || len(published) != 1 {
		t.Fatalf("published files = %v (err %v), want one", published, err)
	}

	get := httptest.NewRecorder()
	srv.Handler().ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/output/"+filepath.Base(published[0]), nil))
	if get.Code != http.StatusOK {
		t.Errorf("GET published image status = %d", get.Code)
	}
}

func TestBuildServer_RefusesHTMLUploads(t *testing.T) {
	t.Parallel()

	cfgPath, storage := writeServeConfig(t)
	env, _, _ := testEnv(t)

	srv, pool, closeStorage, err := buildServer(context.Background(), []string{"-c", cfgPath}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Close()
		_ = closeStorage()
	})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("document", "x.html")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(`<!doctype html><iframe src="file:///etc/passwd"></iframe>`))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/stitch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
	published, _ := filepath.Glob(filepath.Join(storage, "*"))
	if len(published) != 0 {
		t.Errorf("published files = %v, want none", published)
	}
}

func TestBuildServer_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"help", []string{"--help"}, flag.ErrHelp},
		{"unknown flag", []string{"--bogus"}, ErrUsage},
		{"negative workers", []string{"--workers=-1"}, ErrInvalidWorkerCount},
		{"bad timeout", []string{"-t", "later"}, ErrInvalidTimeout},
		{"missing config", []string{"-c", "/nonexistent/serve.yaml"}, config.ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, _ := testEnv(t)
			_, _, _, err := buildServer(context.Background(), tt.args, env)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStorageName(t *testing.T) {
	t.Parallel()

	if got := storageName(config.StorageConfig{Backend: "local"}); got != "local" {
		t.Errorf("local = %q", got)
	}
	if got := storageName(config.StorageConfig{Backend: "GCS", Bucket: "images"}); got != "gs://images" {
		t.Errorf("gcs = %q", got)
	}
}
