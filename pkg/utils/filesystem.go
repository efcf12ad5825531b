package utils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// EnsureDirectoryExists creates a directory and its parents. It's safe to
// call multiple times.
func EnsureDirectoryExists(dirPath string) error {
	if dirPath == "" || dirPath == "." {
		return nil
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		absPath = dirPath
	}

	if info, err := os.Stat(absPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("path %s exists but is not a directory", absPath)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", absPath, err)
	}

	slog.Debug("created directory", "path", absPath)
	return nil
}

// EnsureFileDirectory creates the directory needed for a given file path.
func EnsureFileDirectory(filePath string) error {
	return EnsureDirectoryExists(filepath.Dir(filePath))
}

// ResolvePath joins p onto base unless p is already absolute.
func ResolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
