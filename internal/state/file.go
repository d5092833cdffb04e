package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend keeps each store in <dir>/<name>_cache.txt, one line per record.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Store(name string) Store {
	return &FileStore{path: filepath.Join(b.dir, name+"_cache.txt")}
}

func (b *FileBackend) Close() error { return nil }

type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Append writes all lines with one O_APPEND write so a failure never
// leaves half of a batch behind on a local filesystem. A file whose last
// line lacks its newline gets one first, in the same write.
func (s *FileStore) Append(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}

	data := joinLines(lines)
	unterminated, err := missingNewline(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to inspect %s: %w", s.path, err)
	}
	if unterminated {
		data = "\n" + data
	}

	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", s.path, err)
	}
	return f.Close()
}

// Save writes a temporary file next to the target and renames it over.
func (s *FileStore) Save(ctx context.Context, lines []string) error {
	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(joinLines(lines)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// missingNewline reports whether f is non-empty and does not end in '\n'.
func missingNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
