package bot

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"teragrab/internal"
	"teragrab/utils"
)

func testFetcherConfig(t *testing.T, limit int64) *internal.Config {
	t.Helper()
	cfg := internal.DefaultConfig()
	cfg.CacheDir = t.TempDir()
	cfg.UploadLimit = limit
	return cfg
}

func fetcherSession(t *testing.T) *utils.Session {
	t.Helper()
	session, err := utils.NewSession(utils.SessionConfig{})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func resolvedFile(name string, size int64, url string) *internal.ResolvedFile {
	return &internal.ResolvedFile{Name: name, URL: url, SizeBytes: size}
}

func cacheEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetcher_Fetch(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(payload)
	}))
	defer server.Close()

	cfg := testFetcherConfig(t, 1<<20)
	fetcher := NewFetcher(cfg, nil)

	var lastProgress int64
	path, mimeType, err := fetcher.Fetch(context.Background(), fetcherSession(t),
		resolvedFile("movie.mp4", int64(len(payload)), server.URL+"/f"),
		func(written int64) { lastProgress = written })
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer os.Remove(path)

	if mimeType != "video/mp4" {
		t.Errorf("mimeType = %q", mimeType)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Errorf("temp file extension = %q, want .mp4", filepath.Ext(path))
	}
	if lastProgress != int64(len(payload)) {
		t.Errorf("final progress = %d, want %d", lastProgress, len(payload))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("downloaded content mismatch")
	}
}

func TestFetcher_Fetch_RejectsKnownOversize(t *testing.T) {
	cfg := testFetcherConfig(t, 1024)
	fetcher := NewFetcher(cfg, nil)

	// The reported size already exceeds the ceiling, no request is made.
	_, _, err := fetcher.Fetch(context.Background(), fetcherSession(t),
		resolvedFile("big.bin", 2048, "http://unused.invalid/f"), nil)

	var tooLarge *ErrTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if tooLarge.Limit != 1024 || tooLarge.Size != 2048 {
		t.Errorf("ErrTooLarge = %+v", tooLarge)
	}
}

func TestFetcher_Fetch_AbortsMidStream(t *testing.T) {
	// The server lies about nothing: no Content-Length, the true size
	// only shows up while streaming.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		chunk := bytes.Repeat([]byte("y"), 1024)
		for i := 0; i < 64; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			flusher.Flush()
		}
	}))
	defer server.Close()

	cfg := testFetcherConfig(t, 8*1024)
	fetcher := NewFetcher(cfg, nil)

	_, _, err := fetcher.Fetch(context.Background(), fetcherSession(t),
		resolvedFile("stream.bin", 0, server.URL+"/f"), nil)

	var tooLarge *ErrTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if entries := cacheEntries(t, cfg.CacheDir); len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestFetcher_Fetch_CleansUpOnHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testFetcherConfig(t, 1<<20)
	fetcher := NewFetcher(cfg, nil)

	_, _, err := fetcher.Fetch(context.Background(), fetcherSession(t),
		resolvedFile("f.bin", 10, server.URL+"/f"), nil)
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
	if entries := cacheEntries(t, cfg.CacheDir); len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestFetcher_Fetch_RefusesDegradedLinks(t *testing.T) {
	cfg := testFetcherConfig(t, 1<<20)
	fetcher := NewFetcher(cfg, nil)

	degraded := &internal.ResolvedFile{
		Name:            "f.bin",
		URL:             "https://www.terabox.com/sharing/link?surl=x",
		RequiresBrowser: true,
	}
	if _, _, err := fetcher.Fetch(context.Background(), fetcherSession(t), degraded, nil); err == nil {
		t.Error("degraded links must not be fetched")
	}
}

func TestFetcher_Fetch_Cancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("z"), 1024))
	}))
	defer server.Close()

	cfg := testFetcherConfig(t, 1<<20)
	fetcher := NewFetcher(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := fetcher.Fetch(ctx, fetcherSession(t),
		resolvedFile("f.bin", 1024, server.URL+"/f"), nil); err == nil {
		t.Error("expected error from cancelled context")
	}
	if entries := cacheEntries(t, cfg.CacheDir); len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

// A transfer must survive past the per-request API timeout; its session
// carries the larger transfer budget.
func TestTransferSession_OutlivesRequestTimeout(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write(payload[:1024])
		flusher.Flush()
		time.Sleep(1500 * time.Millisecond)
		w.Write(payload[1024:])
	}))
	defer server.Close()

	cfg := testFetcherConfig(t, 1<<20)
	cfg.TimeoutSeconds = 1

	session, err := NewTransferSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	fetcher := NewFetcher(cfg, nil)
	path, _, err := fetcher.Fetch(context.Background(), session,
		resolvedFile("slow.bin", int64(len(payload)), server.URL+"/f"), nil)
	if err != nil {
		t.Fatalf("transfer aborted by the request timeout: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(payload) {
		t.Errorf("got %d bytes, want %d", len(data), len(payload))
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mimeType string
		want     string
	}{
		{name: "from_filename", filename: "movie.mp4", mimeType: "application/octet-stream", want: ".mp4"},
		{name: "fallback_default", filename: "blob", mimeType: "application/x-unknown-zzz", want: ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extensionFor(tt.filename, tt.mimeType); got != tt.want {
				t.Errorf("extensionFor(%q, %q) = %q, want %q", tt.filename, tt.mimeType, got, tt.want)
			}
		})
	}
}
