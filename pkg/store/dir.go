// ABOUTME: Directory-backed byte store
// ABOUTME: Stores one file per blob in an exclusively locked staging directory
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const lockFileName = ".staging.lock"

var errEmptyName = errors.New("empty blob name")

// Dir is a Store that keeps blobs as files in a single directory.
// The directory is locked for the lifetime of the Dir so two processes
// never share the same staging namespace.
type Dir struct {
	root string
	lock *flock.Flock
}

// OpenDir creates root if needed and takes an exclusive lock on it
func OpenDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire staging lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("staging directory %s is in use by another process", root)
	}

	log.Printf("Staging directory: %s", root)

	return &Dir{
		root: root,
		lock: lock,
	}, nil
}

// Root returns the staging directory path
func (d *Dir) Root() string {
	return d.root
}

// Write stores data under name
func (d *Dir) Write(name string, data []byte) error {
	path, err := d.path(name)
	if err != nil {
		return &IOError{Op: "write", Name: name, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &IOError{Op: "write", Name: name, Err: err}
	}
	return nil
}

// Read returns the blob stored under name
func (d *Dir) Read(name string) ([]byte, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, &IOError{Op: "read", Name: name, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Name: name, Err: notFound(err)}
	}
	return data, nil
}

// Size returns the length of the blob stored under name
func (d *Dir) Size(name string) (int64, error) {
	path, err := d.path(name)
	if err != nil {
		return 0, &IOError{Op: "size", Name: name, Err: err}
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, &IOError{Op: "size", Name: name, Err: notFound(err)}
	}
	return info.Size(), nil
}

// Delete removes the blob stored under name
func (d *Dir) Delete(name string) error {
	path, err := d.path(name)
	if err != nil {
		return &IOError{Op: "delete", Name: name, Err: err}
	}
	if err := os.Remove(path); err != nil {
		return &IOError{Op: "delete", Name: name, Err: notFound(err)}
	}
	return nil
}

// Close releases the directory lock. Blobs are left in place.
func (d *Dir) Close() error {
	return d.lock.Unlock()
}

// path maps a blob name to a file inside root. Names may not escape root
// or collide with the lock file.
func (d *Dir) path(name string) (string, error) {
	if name == "" {
		return "", errEmptyName
	}
	if name == lockFileName || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(d.root, name), nil
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
