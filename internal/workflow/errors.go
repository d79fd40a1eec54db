// Package workflow runs the garden planning pipeline: a compliance gate
// over the submitted photos, environmental analysis, plant recommendations,
// and generated garden and plant illustrations.
package workflow

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/graph"
)

// Sentinel errors for workflow operations.
var (
	ErrInvalidInput      = errors.New("invalid workflow input")
	ErrComplianceFailed  = errors.New("compliance check failed")
	ErrAnalysisFailed    = errors.New("garden analysis failed")
	ErrRecommendFailed   = errors.New("plant recommendation failed")
	ErrGardenImageFailed = errors.New("garden image generation failed")
	ErrPlantImageFailed  = errors.New("plant image generation failed")
	ErrPromptUnavailable = errors.New("prompt template unavailable")
	ErrInvalidConfig     = errors.New("invalid workflow config")
)

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	var nodeErr *graph.NodeError
	if errors.As(err, &nodeErr) && nodeErr.Cancelled() {
		return http.StatusGatewayTimeout
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrComplianceFailed),
		errors.Is(err, ErrAnalysisFailed),
		errors.Is(err, ErrRecommendFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
