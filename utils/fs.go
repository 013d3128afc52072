package utils

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileOperations provides the small set of filesystem helpers the
// transfer paths need: per-download temp files and guaranteed cleanup.
type FileOperations struct{}

// NewFileOperations creates a new FileOperations instance.
func NewFileOperations() *FileOperations {
	return &FileOperations{}
}

// EnsureDir creates the directory if it doesn't exist.
func (f *FileOperations) EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// TempFilePath returns a collision-free path for a partial download.
// The extension is carried over so upload-side MIME sniffing still works.
func (f *FileOperations) TempFilePath(dir, ext string) string {
	return filepath.Join(dir, uuid.NewString()+ext)
}

// FileExists checks if a file exists.
func (f *FileOperations) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// FileSize returns the size of a file.
func (f *FileOperations) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// RemoveQuiet removes a file, ignoring errors. Used on cleanup paths
// where the original failure already carries the interesting error.
func (f *FileOperations) RemoveQuiet(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
