// Package anthropic implements ai.Client with the Claude Messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/JaimeStill/citygarden/pkg/ai"
)

const defaultMaxTokens = 4096

// Chat completes prompts with a Claude model.
type Chat struct {
	client      *anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewChat creates a completion client for cfg.Model. A non-empty Endpoint
// overrides the API base URL.
func NewChat(cfg ai.ProviderConfig, opts ...option.RequestOption) *Chat {
	base := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		base = append(base, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		base = append(base, option.WithBaseURL(cfg.Endpoint))
	}
	client := anthropic.NewClient(append(base, opts...)...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Chat{
		client:      &client,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *Chat) Complete(ctx context.Context, req ai.Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks(req.Parts)...)},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", ai.Upstream("anthropic messages", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: stop reason %s", ai.ErrEmptyResponse, resp.StopReason)
	}
	return sb.String(), nil
}

func blocks(parts []ai.Part) []anthropic.ContentBlockParamUnion {
	out := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			out = append(out, anthropic.NewImageBlockBase64(p.MIMEType, base64.StdEncoding.EncodeToString(p.Image)))
			continue
		}
		out = append(out, anthropic.NewTextBlock(p.Text))
	}
	return out
}
