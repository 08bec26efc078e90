package blobserve

import (
	"errors"
	"io/fs"
	"net/http"
)

// Sentinel errors for resource operations.
var (
	// ErrMissingName is returned when a file request carries no name.
	ErrMissingName = errors.New("blobserve: missing name parameter")

	// ErrIsDirectory is returned when a file request resolves to a directory.
	ErrIsDirectory = errors.New("blobserve: is a directory")
)

// statusCode maps an error to the HTTP status reported to the client.
// The mapping follows net/http's file server: missing paths are 404,
// permission failures are 403, and anything else is a server error.
func statusCode(err error) int {
	switch {
	case errors.Is(err, ErrMissingName):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
