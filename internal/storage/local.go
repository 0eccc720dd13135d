package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes images under a directory that the API serves at /uploads/.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed. publicBaseURL is the externally
// visible origin of the API, e.g. http://localhost:8080.
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(publicBaseURL, "/") + "/uploads/",
	}, nil
}

// Dir returns the directory images are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Ping reports whether the upload directory is still present.
func (s *LocalStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// Upload implements ImageStore.
func (s *LocalStore) Upload(ctx context.Context, r io.Reader, filename, owner string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := ObjectName(owner, filename)
	full := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close image file: %w", err)
	}

	return s.baseURL + name, nil
}

// Delete implements ImageStore.
func (s *LocalStore) Delete(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, ok := parseObjectURL(rawURL, s.baseURL)
	if !ok {
		return nil
	}
	name = path.Clean(name)
	if !strings.HasPrefix(name, objectPrefix+"/") {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}
