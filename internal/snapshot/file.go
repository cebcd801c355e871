package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

var fileKeyRe = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// File stores one JSON document per key inside Dir. Writes go through a
// synced temp file and rename so a crash never leaves a half-written
// snapshot.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if !fileKeyRe.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	// ':' is not portable in file names.
	name := strings.ReplaceAll(key, ":", "_")
	return filepath.Join(f.dir, name+".json"), nil
}

func (f *File) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", path, err)
	}
	return data, nil
}

func (f *File) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644, renameio.WithTempDir(f.dir)); err != nil {
		return fmt.Errorf("write snapshot %q: %w", path, err)
	}
	return nil
}

func (f *File) DeleteSnapshot(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot %q: %w", path, err)
	}
	return nil
}

// PruneBefore removes snapshot files whose modification time is before
// cutoff. Leftover temp files from interrupted saves are removed too.
func (f *File) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("read snapshot dir %q: %w", f.dir, err)
	}
	var removed int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		// temp files from interrupted saves are dot-prefixed and lack the
		// .json suffix
		isSnapshot := strings.HasSuffix(name, ".json")
		if !isSnapshot && !strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("stat %q: %w", name, err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove snapshot %q: %w", name, err)
		}
		if isSnapshot {
			removed++
		}
	}
	return removed, nil
}
