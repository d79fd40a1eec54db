package ai

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JaimeStill/citygarden/pkg/telemetry"
)

// TracedClient records a span around each completion.
type TracedClient struct {
	inner    Client
	provider string
	model    string
}

// NewTraced wraps inner with span recording tagged by provider and model.
func NewTraced(inner Client, provider, model string) *TracedClient {
	return &TracedClient{inner: inner, provider: provider, model: model}
}

func (c *TracedClient) Complete(ctx context.Context, req Request) (out string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ai.complete",
		attribute.String("ai.provider", c.provider),
		attribute.String("ai.model", c.model),
		attribute.Int("ai.images", len(req.Images())),
	)
	defer func() { telemetry.End(span, err) }()

	out, err = c.inner.Complete(ctx, req)
	span.SetAttributes(attribute.Int("ai.response_chars", len(out)))
	return out, err
}

// TracedImageClient records a span around each image operation.
type TracedImageClient struct {
	inner    ImageClient
	provider string
	model    string
}

// NewTracedImages wraps inner with span recording tagged by provider and model.
func NewTracedImages(inner ImageClient, provider, model string) *TracedImageClient {
	return &TracedImageClient{inner: inner, provider: provider, model: model}
}

func (c *TracedImageClient) Generate(ctx context.Context, prompt string) (out []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ai.image.generate",
		attribute.String("ai.provider", c.provider),
		attribute.String("ai.model", c.model),
	)
	defer func() { telemetry.End(span, err) }()

	out, err = c.inner.Generate(ctx, prompt)
	span.SetAttributes(attribute.Int("ai.image_bytes", len(out)))
	return out, err
}

func (c *TracedImageClient) Edit(ctx context.Context, prompt string, images [][]byte) (out []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ai.image.edit",
		attribute.String("ai.provider", c.provider),
		attribute.String("ai.model", c.model),
		attribute.Int("ai.references", len(images)),
	)
	defer func() { telemetry.End(span, err) }()

	out, err = c.inner.Edit(ctx, prompt, images)
	span.SetAttributes(attribute.Int("ai.image_bytes", len(out)))
	return out, err
}
