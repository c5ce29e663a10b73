package crypto

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxResourceSize bounds key and certificate files read by a ResourceLoader
var MaxResourceSize int64 = 1024 * 1024 // 1MB

// ResourceLoader reads key material by locator
type ResourceLoader interface {
	Read(locator string) ([]byte, error)
}

// FileLoader reads resources from the filesystem.
// Locators are file paths, optionally prefixed with "file:".
// When BaseDir is set every locator is resolved inside it and may not escape it.
type FileLoader struct {
	BaseDir string
}

func (l FileLoader) Read(locator string) ([]byte, error) {
	path := strings.TrimPrefix(locator, "file:")
	if path == "" {
		return nil, NewKeyManagementError("empty resource locator")
	}

	dir, filename := l.BaseDir, path
	if dir == "" {
		dir = filepath.Dir(path)
		filename = filepath.Base(path)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to open directory %s", dir))
	}
	defer root.Close()

	f, err := root.Open(filename)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to open %s", locator))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxResourceSize+1))
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to read %s", locator))
	}
	if int64(len(data)) > MaxResourceSize {
		return nil, NewKeyManagementError(fmt.Sprintf("%s exceeds the maximum resource size (%d bytes)", locator, MaxResourceSize))
	}
	return data, nil
}
