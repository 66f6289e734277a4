package modelstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/vendimia/forecast-backend/pkg/errors"
)

const artifactExt = ".bin"

// Store persists trained model artifacts as key-addressed blobs on disk.
// Keys are slash-separated (e.g. "general/<tenant>" or
// "products/<tenant>/<product>") and map onto a directory tree under root.
type Store struct {
	root string
}

// New builds a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("model store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating model store dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Save writes the artifact for key, replacing any previous one. The write
// lands in a temp file in the target directory and is renamed into place so
// concurrent readers never observe a torn artifact.
func (s *Store) Save(key string, blob []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}

// Load returns the artifact stored at key. A missing artifact is reported
// with the MODEL_NOT_FOUND code so callers can fall back to training.
func (s *Store) Load(key string) ([]byte, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, pkgerrors.New(pkgerrors.CodeModelNotFound, fmt.Sprintf("no model stored for key %q", key))
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return blob, nil
}

// Exists reports whether an artifact is stored at key.
func (s *Store) Exists(key string) bool {
	path, err := s.pathFor(key)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// Delete removes the artifact at key if present.
func (s *Store) Delete(key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}

func (s *Store) pathFor(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("model key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid model key %q", key)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(key)+artifactExt), nil
}
