package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"placementcell/internal/common"
)

var ErrTooLarge = errors.New("file exceeds size limit")

// FileStore keeps uploaded resumes, logos and attachments.
type FileStore interface {
	Save(ctx context.Context, dir, ext string, r io.Reader, maxBytes int64) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Save writes r under dir with a random name and returns the path relative to the store root.
func (s *LocalStore) Save(ctx context.Context, dir, ext string, r io.Reader, maxBytes int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir = filepath.Clean(strings.Trim(dir, "/"))
	if dir == "." || strings.HasPrefix(dir, "..") {
		return "", fmt.Errorf("invalid upload dir %q", dir)
	}
	if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	rel := filepath.Join(dir, common.NewUUID().String()+strings.ToLower(ext))
	full := filepath.Join(s.root, rel)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.NewError(common.CodeNotFound, "file not found", err)
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Remove(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", common.NewError(common.CodeValidation, "invalid file path", nil)
	}
	return full, nil
}
