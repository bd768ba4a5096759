// ABOUTME: Byte store package used as decode scratch space
// ABOUTME: Provides the Store interface plus in-memory and directory backends
// Package store provides a named blob store used as the decoder's working
// filesystem.
//
// Two backends are provided:
//   - Memory: a map guarded by a RWMutex, the default for the CLI and tests
//   - Dir: one file per blob inside a directory that is exclusively locked
//
// Every failure is reported as *IOError. Missing keys also match ErrNotFound
// through errors.Is.
package store
