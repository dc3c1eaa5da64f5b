// Package apperr defines the error kinds shared by the storage engine and its callers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnprocessable marks caller input that can never be stored as given
	// (invalid folder pathname or tag name). It is raised before any write.
	ErrUnprocessable = errors.New("unprocessable entity")
)
