// Package uploads stores proof-of-delivery images and invoice documents on
// disk and serves them back by generated filename.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"freight/cmd/identity/ids"
)

// ErrExtension reports a file type outside the allow-list.
var ErrExtension = errors.New("uploads: only image files or PDF are allowed")

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".pdf":  {},
	".webp": {},
}

// ValidateExtension returns the lowercased extension of name if allowed.
func ValidateExtension(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrExtension
	}
	return ext, nil
}

// DiskStore writes uploads under a root directory with generated names, so
// a caller-supplied filename can never traverse outside the root.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("uploads: empty root dir")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("uploads: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create root: %w", err)
	}
	return &DiskStore{root: abs}, nil
}

// Save streams src to disk under a fresh name keeping originalName's
// extension, and returns the stored filename.
func (d *DiskStore) Save(src io.Reader, originalName string) (string, error) {
	ext, err := ValidateExtension(originalName)
	if err != nil {
		return "", err
	}

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("uploads: name: %w", err)
	}
	name := strings.ToLower(id) + ext

	dst, err := os.OpenFile(filepath.Join(d.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("uploads: create: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("uploads: write: %w", err)
	}
	return name, nil
}

// Open returns the stored file for name, refusing anything that is not a
// bare filename inside the root.
func (d *DiskStore) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, os.ErrNotExist
	}
	if _, err := ValidateExtension(name); err != nil {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(d.root, name))
}
