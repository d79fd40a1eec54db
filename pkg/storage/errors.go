package storage

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey indicates an empty container or blob name was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates a container or blob name contains a path traversal segment.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrInvalidURL indicates a blob URL could not be parsed or is not fetchable.
	ErrInvalidURL = errors.New("invalid blob url")
	// ErrForeignURL indicates a write or delete targeted a URL this backend does not own.
	ErrForeignURL = errors.New("blob url not owned by this storage account")
	// ErrTooLarge indicates a download exceeded the configured size limit.
	ErrTooLarge = errors.New("blob exceeds maximum download size")
)

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey),
		errors.Is(err, ErrInvalidKey),
		errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrForeignURL):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
