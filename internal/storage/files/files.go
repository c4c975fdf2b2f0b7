// Package files persists listing images on the local filesystem.
//
// Uploaded files are never stored under their user-supplied names; Save
// generates a fresh random token so a hostile filename can neither escape the
// upload directory nor collide with an existing image.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is the image storage collaborator used by the listing service.
type Store interface {
	// Save writes the content under a freshly generated name that keeps the
	// extension of originalFilename, and returns that name.
	Save(originalFilename string, content io.Reader) (string, error)

	// Remove deletes a stored image by its generated name. Removing a name
	// that does not exist is not an error.
	Remove(name string) error
}

var _ Store = (*DiskStore)(nil)

// DiskStore stores images inside a single root directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed and returns a store
// rooted there.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Root returns the directory images are stored in.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Save(originalFilename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext

	f, err := os.Create(filepath.Join(s.root, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	return name, nil
}

func (s *DiskStore) Remove(name string) error {
	// Generated names never contain separators; reject anything else.
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid image name: %s", name)
	}

	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}
