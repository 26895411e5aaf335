package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// RemoveFile removes a file, ignoring files that are already gone.
func RemoveFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// TempFilePath builds a unique path inside dir for a file named after name.
// Only the base name of name is used, with anything outside [A-Za-z0-9._-]
// replaced, so client supplied names cannot escape dir.
func TempFilePath(dir, prefix, name string) string {
	base := sanitizeFileName(filepath.Base(name))
	return filepath.Join(dir, fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), base))
}

func sanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return "audio"
	}
	return cleaned
}
