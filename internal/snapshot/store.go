// Package snapshot persists captured device configurations as timestamped
// files under per-hostname namespaces and enforces the retention policy.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// TimestampLayout produces fixed-width, zero-padded components so that
// filenames within a namespace sort lexicographically by capture time.
const TimestampLayout = "20060102_150405"

// File identifies one persisted snapshot.
type File struct {
	Hostname   string
	Name       string
	Path       string
	SizeBytes  int64
	CapturedAt time.Time
}

// StorageError reports an I/O failure while persisting a snapshot.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConflictError reports a write that would clobber an existing snapshot.
// Timestamps are second-resolution and a run captures each device once, so
// a collision indicates a logic error; the earlier file is left untouched.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("snapshot already exists: %s", e.Path)
}

// Store writes snapshots under a root directory, one subdirectory per
// canonical hostname.
type Store struct {
	root   string
	logger zerolog.Logger
}

// NewStore returns a store rooted at the given directory.
func NewStore(root string, logger zerolog.Logger) *Store {
	return &Store{root: root, logger: logger}
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// Write persists capturedText verbatim as a new snapshot for hostname at the
// given timestamp. The write goes through a temp file and a rename so a
// canceled run leaves either a complete file or nothing.
func (s *Store) Write(host, capturedText string, capturedAt time.Time) (File, error) {
	dir := filepath.Join(s.root, host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, &StorageError{Op: "create namespace", Path: dir, Err: err}
	}

	name := fmt.Sprintf("%s_%s.conf", host, capturedAt.Format(TimestampLayout))
	path := filepath.Join(dir, name)

	if _, err := os.Lstat(path); err == nil {
		return File{}, &ConflictError{Path: path}
	} else if !os.IsNotExist(err) {
		return File{}, &StorageError{Op: "stat", Path: path, Err: err}
	}

	tempFile, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return File{}, &StorageError{Op: "create temp", Path: dir, Err: err}
	}
	cleanup := func() {
		_ = os.Remove(tempFile.Name())
	}

	if _, err := tempFile.WriteString(capturedText); err != nil {
		_ = tempFile.Close()
		cleanup()
		return File{}, &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		cleanup()
		return File{}, &StorageError{Op: "sync", Path: path, Err: err}
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return File{}, &StorageError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tempFile.Name(), path); err != nil {
		cleanup()
		return File{}, &StorageError{Op: "rename", Path: path, Err: err}
	}

	if dirHandle, err := os.Open(dir); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}

	s.logger.Debug().Str("host", host).Str("file", name).Msg("snapshot written")

	return File{
		Hostname:   host,
		Name:       name,
		Path:       path,
		SizeBytes:  int64(len(capturedText)),
		CapturedAt: capturedAt,
	}, nil
}

// Rotate deletes the oldest snapshots in the hostname namespace until at
// most maxBackups remain. It returns the removed paths. maxBackups <= 0
// disables rotation entirely; retention is then unbounded.
func (s *Store) Rotate(host string, maxBackups int) ([]string, error) {
	if maxBackups <= 0 {
		return nil, nil
	}

	names, err := s.List(host)
	if err != nil {
		return nil, err
	}
	if len(names) <= maxBackups {
		return nil, nil
	}

	dir := filepath.Join(s.root, host)
	var removed []string
	for _, name := range names[:len(names)-maxBackups] {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return removed, &StorageError{Op: "remove", Path: path, Err: err}
		}
		s.logger.Info().Str("host", host).Str("file", name).Msg("old snapshot removed")
		removed = append(removed, path)
	}
	return removed, nil
}

// List returns the snapshot filenames for a hostname, ordered by capture
// time ascending. The fixed-width timestamp makes name order time order.
func (s *Store) List(host string) ([]string, error) {
	dir := filepath.Join(s.root, host)
	pattern := filepath.Join(dir, host+"_*.conf")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &StorageError{Op: "list", Path: dir, Err: err}
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}
	sort.Strings(names)
	return names, nil
}
