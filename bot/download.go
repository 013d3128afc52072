package bot

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"teragrab/internal"
	"teragrab/utils"
)

const downloadChunkSize = 1 << 20

// ErrTooLarge marks files whose reported or observed size exceeds the
// configured upload ceiling.
type ErrTooLarge struct {
	Limit int64
	Size  int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("file size %d exceeds the %d byte limit", e.Size, e.Limit)
}

// Fetcher downloads resolved files to local temp storage so they can be
// re-uploaded. Files above the ceiling are rejected, including streams
// that only reveal their length mid-transfer.
type Fetcher struct {
	cfg     *internal.Config
	fs      *utils.FileOperations
	limiter *utils.ByteLimiter
}

// NewFetcher builds a Fetcher. A nil or zero rate gives an unthrottled
// transfer.
func NewFetcher(cfg *internal.Config, limiter *utils.ByteLimiter) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		fs:      utils.NewFileOperations(),
		limiter: limiter,
	}
}

// Fetch downloads file.URL into the cache directory and returns the
// local path and MIME type. The temp file is removed on every failure
// path. onProgress, when non-nil, receives cumulative written bytes.
func (f *Fetcher) Fetch(ctx context.Context, session *utils.Session, file *internal.ResolvedFile, onProgress func(written int64)) (string, string, error) {
	if !file.HasDirectLink() {
		return "", "", internal.NewInputError("file has no direct download link")
	}
	if file.SizeBytes > f.cfg.UploadLimit {
		return "", "", &ErrTooLarge{Limit: f.cfg.UploadLimit, Size: file.SizeBytes}
	}
	if err := f.fs.EnsureDir(f.cfg.CacheDir); err != nil {
		return "", "", fmt.Errorf("create cache dir: %w", err)
	}

	resp, err := session.Get(ctx, file.URL, nil)
	if err != nil {
		return "", "", fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return "", "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.cfg.UploadLimit {
		return "", "", &ErrTooLarge{Limit: f.cfg.UploadLimit, Size: resp.ContentLength}
	}

	mimeType := strings.Split(resp.Header.Get("Content-Type"), ";")[0]
	path := f.fs.TempFilePath(f.cfg.CacheDir, extensionFor(file.Name, mimeType))

	written, err := f.copyBounded(ctx, path, resp.Body, onProgress)
	if err != nil {
		f.fs.RemoveQuiet(path)
		return "", "", err
	}
	internal.LogInfo("downloaded %q (%d bytes)", file.Name, written)
	return path, mimeType, nil
}

// copyBounded streams body to path in fixed chunks, aborting once the
// ceiling is crossed. It owns the output file's lifetime on error.
func (f *Fetcher) copyBounded(ctx context.Context, path string, body io.Reader, onProgress func(written int64)) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	buf := make([]byte, downloadChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if f.limiter != nil {
				if err := f.limiter.WaitN(ctx, n); err != nil {
					return written, err
				}
			}
			if _, err := out.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write temp file: %w", err)
			}
			written += int64(n)
			if written > f.cfg.UploadLimit {
				return written, &ErrTooLarge{Limit: f.cfg.UploadLimit, Size: written}
			}
			if onProgress != nil {
				onProgress(written)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read body: %w", readErr)
		}
	}
}

// extensionFor prefers the original filename's extension and falls back
// to one derived from the MIME type.
func extensionFor(name, mimeType string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
