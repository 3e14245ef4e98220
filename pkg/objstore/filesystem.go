package objstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// filesystemStore writes outputs under a local directory. Writes go through a
// temp file and rename, so a reader never observes a partially written
// object.
type filesystemStore struct {
	root string
}

var _ ObjectStore = (*filesystemStore)(nil)

func NewFilesystemStore(root string) (ObjectStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &filesystemStore{root: root}, nil
}

func (s *filesystemStore) Put(ctx context.Context, key string, r io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, filepath.Clean(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return fmt.Sprintf("file://%s", path), nil
}

func (s *filesystemStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, filepath.Clean(key)))
}

func (s *filesystemStore) Type() string {
	return "filesystem"
}
