package prompts

import (
	"errors"
	"net/http"
)

// Domain errors for prompt template operations.
var (
	ErrTemplateNotFound = errors.New("prompt template not found")
	ErrVariantNotFound  = errors.New("prompt variant not found")
	ErrInvalidTemplate  = errors.New("invalid prompt template")
	ErrRender           = errors.New("prompt render failed")
)

// MapHTTPStatus maps prompt errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrTemplateNotFound) || errors.Is(err, ErrVariantNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
