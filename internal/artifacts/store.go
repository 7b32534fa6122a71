package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vodworks/internal/fileutil"
)

// Kind identifies the class of artifact being stored.
type Kind string

const (
	KindSource Kind = "source"
	KindPoster Kind = "poster"
)

// Store manages on-disk artifacts under the media root. Every write uses a
// generated name so user-supplied filenames never touch the filesystem, and
// every delete is idempotent so cleanup can run unconditionally from any
// call site.
type Store struct {
	root string
}

// NewStore creates an artifact store rooted at the given media directory.
func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the media root directory.
func (s *Store) Root() string {
	return s.root
}

// Put streams content into a new artifact of the given kind and returns its
// stored path. The extension of the original filename is preserved; the rest
// of the name is generated.
func (s *Store) Put(kind Kind, r io.Reader, ext string) (string, error) {
	dir, err := s.kindDir(kind)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + normalizeExt(ext)
	path := filepath.Join(dir, name)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	return path, nil
}

// PutFile copies an existing file into the store as a new artifact.
func (s *Store) PutFile(kind Kind, sourcePath string) (string, error) {
	dir, err := s.kindDir(kind)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + normalizeExt(filepath.Ext(sourcePath))
	path := filepath.Join(dir, name)
	if err := fileutil.CopyFile(sourcePath, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("copy artifact: %w", err)
	}
	return path, nil
}

// Remove deletes a single artifact file. Removing a missing or empty path is
// a no-op.
func (s *Store) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// RemoveDir recursively deletes an artifact directory. Removing a missing or
// empty path is a no-op.
func (s *Store) RemoveDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove artifact directory: %w", err)
	}
	return nil
}

// Exists reports whether a path refers to an existing artifact.
func (s *Store) Exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// OutputDir returns the HLS output directory owned by a movie. The directory
// is exclusive to the worker currently processing that movie.
func (s *Store) OutputDir(movieID int64) string {
	return filepath.Join(s.root, "movies", "hls", strconv.FormatInt(movieID, 10))
}

// ManifestPath returns the path of the streaming manifest inside a movie's
// output directory.
func (s *Store) ManifestPath(movieID int64) string {
	return filepath.Join(s.OutputDir(movieID), "index.m3u8")
}

// PrepareOutputDir clears any stale contents from a prior attempt and
// recreates the output directory for a fresh encode.
func (s *Store) PrepareOutputDir(movieID int64) (string, error) {
	dir := s.OutputDir(movieID)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return dir, nil
}

func (s *Store) kindDir(kind Kind) (string, error) {
	switch kind {
	case KindSource:
		return filepath.Join(s.root, "movies", "files"), nil
	case KindPoster:
		return filepath.Join(s.root, "movies", "posters"), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(strings.ToLower(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
