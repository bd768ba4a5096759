// ABOUTME: Byte store interface and error types
// ABOUTME: Defines the named write/read/size/delete contract used by the decoder
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors for missing keys
var ErrNotFound = errors.New("no such blob")

// Store is a key-value byte store keyed by name. All methods are synchronous.
type Store interface {
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
	Size(name string) (int64, error)
	Delete(name string) error
}

// IOError reports a failed store operation
type IOError struct {
	Op   string // write, read, size, delete
	Name string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Exists reports whether name is present in s
func Exists(s Store, name string) bool {
	_, err := s.Size(name)
	return err == nil
}
