// Package ai defines the boundary between the workflow and generative model
// providers: a completion client for text and vision prompts and an image
// client for generation and edits. Provider implementations live in subpackages.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUpstream wraps provider transport, status, and quota failures.
	ErrUpstream = errors.New("upstream service error")
	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrUnsupported indicates the provider cannot serve the operation.
	ErrUnsupported = errors.New("operation not supported by provider")
)

// Part is one ordered segment of a user prompt: text or an encoded image.
type Part struct {
	Text     string
	Image    []byte
	MIMEType string
}

// IsImage reports whether the part carries image bytes.
func (p Part) IsImage() bool {
	return len(p.Image) > 0
}

// Text returns a text part.
func Text(s string) Part {
	return Part{Text: s}
}

// Image returns an image part with its MIME type sniffed from the bytes.
func Image(data []byte) Part {
	return Part{Image: data, MIMEType: DetectMIME(data)}
}

// Request is a single-turn prompt.
type Request struct {
	System string
	Parts  []Part
}

// Images returns the request's image parts in order.
func (r Request) Images() []Part {
	var images []Part
	for _, p := range r.Parts {
		if p.IsImage() {
			images = append(images, p)
		}
	}
	return images
}

// Client completes a prompt and returns the model's text response.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ImageClient produces encoded images. Generate creates an image from a
// prompt; Edit creates one image conditioned on the reference images.
type ImageClient interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
	Edit(ctx context.Context, prompt string, images [][]byte) ([]byte, error)
}

// DetectMIME sniffs an image MIME type, defaulting to image/jpeg for
// content the sniffer does not classify as an image.
func DetectMIME(data []byte) string {
	ct := http.DetectContentType(data)
	switch ct {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return ct
	default:
		return "image/jpeg"
	}
}

// DataURI encodes an image part as a base64 data URI.
func DataURI(p Part) string {
	mime := p.MIMEType
	if mime == "" {
		mime = DetectMIME(p.Image)
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(p.Image))
}

// Upstream wraps a provider failure with ErrUpstream and the operation name.
func Upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
