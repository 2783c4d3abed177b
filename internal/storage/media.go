// Package storage is a root-jailed blob store for uploaded media
// (avatars and micropost images). Files never escape the configured
// root, and callers only ever see paths relative to it.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type MediaStore struct {
	root string
}

func New(root string) (*MediaStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("media root is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}

	return &MediaStore{root: abs}, nil
}

func (s *MediaStore) Root() string {
	return s.root
}

// Resolve maps a store-relative path to an absolute one, rejecting
// anything that would escape the root.
func (s *MediaStore) Resolve(rel string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimSpace(rel))
	abs := filepath.Join(s.root, cleaned)

	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes media root: %q", rel)
	}
	return abs, nil
}

func (s *MediaStore) Save(rel string, src io.Reader) error {
	abs, err := s.Resolve(rel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create media directory: %w", err)
	}

	dst, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open media file: %w", err)
	}

	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil {
		_ = os.Remove(abs)
		return fmt.Errorf("write media file: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close media file: %w", closeErr)
	}
	return nil
}

func (s *MediaStore) Open(rel string) (*os.File, os.FileInfo, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return file, info, nil
}

func (s *MediaStore) Remove(rel string) error {
	abs, err := s.Resolve(rel)
	if err != nil {
		return err
	}

	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}
