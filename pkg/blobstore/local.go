package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes blobs under a directory; used in development.
type LocalStore struct {
	basePath  string
	publicURL string
}

func NewLocalStore(basePath, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return &LocalStore{basePath: abs, publicURL: publicURL}, nil
}

// BasePath is the absolute directory blobs are written to.
func (s *LocalStore) BasePath() string { return s.basePath }

// fullPath maps a key into basePath, rejecting keys that escape it.
func (s *LocalStore) fullPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *LocalStore) Upload(_ context.Context, data []byte, filename, _ string, folder string) (Blob, error) {
	key := newKey(folder, filename)
	p, err := s.fullPath(key)
	if err != nil {
		return Blob{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Blob{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return Blob{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Blob{}, fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Blob{}, err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return Blob{}, fmt.Errorf("failed to move blob into place: %w", err)
	}
	return Blob{ID: key, URL: joinURL(s.publicURL, key)}, nil
}

func (s *LocalStore) Delete(_ context.Context, id string) (bool, error) {
	p, err := s.fullPath(id)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
