package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"speech-transcriber/domain/distribution"
	"speech-transcriber/domain/media"
)

// Store keeps artifacts on local disk as <root>/<key>/<filename>
type Store struct {
	root string
	now  func() time.Time
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{root: dir, now: time.Now}
}

// Root returns the directory artifacts are written under
func (s *Store) Root() string {
	return s.root
}

// Put implements distribution.ArtifactStore. A key/filename pair can only be
// written once.
func (s *Store) Put(ctx context.Context, artifact distribution.Artifact) (*media.StoredRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validName(artifact.Key) || !validName(artifact.Filename) {
		return nil, fmt.Errorf("%w: %q/%q", distribution.ErrInvalidKey, artifact.Key, artifact.Filename)
	}

	dir := filepath.Join(s.root, artifact.Key)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	path := filepath.Join(dir, artifact.Filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s/%s", distribution.ErrArtifactExists, artifact.Key, artifact.Filename)
		}
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	if _, err := f.Write(artifact.Data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}

	location, err := filepath.Abs(path)
	if err != nil {
		location = path
	}
	return &media.StoredRef{
		Key:      artifact.Key,
		Filename: artifact.Filename,
		Location: location,
		Size:     int64(len(artifact.Data)),
	}, nil
}

// Open implements distribution.ArtifactReader
func (s *Store) Open(ctx context.Context, key, filename string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validName(key) || !validName(filename) {
		return nil, fmt.Errorf("%w: %q/%q", distribution.ErrInvalidKey, key, filename)
	}

	f, err := os.Open(filepath.Join(s.root, key, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", distribution.ErrArtifactNotFound, key, filename)
		}
		return nil, err
	}
	return f, nil
}

// Prune removes run directories last modified more than maxAge ago
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (*distribution.CleanupResult, error) {
	result := &distribution.CleanupResult{}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return result, fmt.Errorf("failed to list artifacts: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		dir := filepath.Join(s.root, entry.Name())
		size := dirSize(dir)
		if err := os.RemoveAll(dir); err != nil {
			return result, fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
		result.Add(distribution.DeletedFile{Name: entry.Name(), Size: size, Created: info.ModTime()})
	}
	return result, nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// validName accepts a single path element with no separators or dot-only names
func validName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 255 {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}

var (
	_ distribution.ArtifactStore  = (*Store)(nil)
	_ distribution.ArtifactReader = (*Store)(nil)
)
