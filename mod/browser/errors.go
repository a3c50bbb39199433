package browser

import (
	"errors"
	"net/http"
)

var (
	// The request path is malformed or points outside of the root
	ErrInvalidPath = errors.New("invalid path")

	// The requested entry does not exist under the root
	ErrNotFound = errors.New("not found")

	// Reading the filesystem failed (e.g. permission denied)
	ErrIO = errors.New("filesystem error")

	ErrRootNotDir = errors.New("root is not a directory")
)

// StatusCode maps an error returned by this package to the HTTP status
// that is sent to the client
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
