package plans

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/citygarden/internal/safety"
	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/storage"
)

// Domain errors for plan operations.
var (
	ErrNotFound       = errors.New("plan not found")
	ErrDuplicate      = errors.New("plan already exists")
	ErrInvalidRequest = errors.New("invalid plan request")
	ErrImageLoad      = errors.New("failed to load images")
)

// MapHTTPStatus maps plan, image loading, screening, and pipeline errors to
// HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrImageLoad):
		if status := storage.MapHTTPStatus(err); status != http.StatusInternalServerError {
			return status
		}
		return http.StatusBadGateway
	case errors.Is(err, safety.ErrUnsafeContent):
		return http.StatusBadRequest
	case errors.Is(err, safety.ErrUpstream):
		return http.StatusBadGateway
	default:
		return workflow.MapHTTPStatus(err)
	}
}
