// Package workdir creates uniquely named extraction directories.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	suffixLen   = 7
	maxAttempts = 16
)

// Dir is a freshly created extraction directory together with the file
// prefix extracted files should use inside it.
type Dir struct {
	Path string
	// Prefix is Path joined with the capture base name and a dash, or Path
	// with a trailing separator when no capture name is known.
	Prefix string
}

// Make creates a new directory under parent. When parent is empty the
// directory of capturePath is used, then the system temp directory.
// capturePath, if set, also names the directory and the prefix.
func Make(parent, capturePath string) (Dir, error) {
	name := ""
	if capturePath != "" {
		base := filepath.Base(capturePath)
		name = strings.TrimSuffix(base, filepath.Ext(base)) + "-"
	}
	if parent == "" {
		if capturePath != "" {
			parent = filepath.Dir(capturePath)
		} else {
			parent = os.TempDir()
		}
	}
	if err := os.MkdirAll(parent, 0755); err != nil {
		return Dir{}, fmt.Errorf("creating parent directory: %w", err)
	}

	for range maxAttempts {
		path := filepath.Join(parent, name+randomSuffix())
		err := os.Mkdir(path, 0755)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return Dir{}, fmt.Errorf("creating work directory: %w", err)
		}
		return Dir{Path: path, Prefix: prefix(path, name)}, nil
	}
	return Dir{}, fmt.Errorf("creating work directory in %s: no free name after %d attempts", parent, maxAttempts)
}

// Remove deletes the directory and everything in it.
func (d Dir) Remove() error {
	return os.RemoveAll(d.Path)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
}

func prefix(path, name string) string {
	if name == "" {
		return path + string(filepath.Separator)
	}
	return filepath.Join(path, name)
}
