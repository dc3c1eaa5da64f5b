// Package storage reads and writes the Markdown vault used for import and export.
package storage

import "time"

// File describes one Markdown file in the vault.
type File struct {
	// Path is relative to the vault root and always uses forward slashes.
	Path     string
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for vault file operations. Paths are relative
// to the vault root.
type Provider interface {
	// List returns every .md file under dir, skipping hidden directories.
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
