// Package google implements ai.Client and ai.ImageClient with the Gemini
// and Imagen models of the Google GenAI API.
package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/JaimeStill/citygarden/pkg/ai"
)

// NewClient creates a Gemini API client. A non-empty Endpoint in cfg
// overrides the service base URL.
func NewClient(ctx context.Context, cfg ai.ProviderConfig) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// Chat completes prompts with a Gemini model.
type Chat struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewChat creates a completion client for cfg.Model.
func NewChat(client *genai.Client, cfg ai.ProviderConfig) *Chat {
	return &Chat{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
	}
}

func (c *Chat) Complete(ctx context.Context, req ai.Request) (string, error) {
	config := &genai.GenerateContentConfig{}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}
	if c.temperature > 0 {
		temp := c.temperature
		config.Temperature = &temp
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, userContent(req.Parts), config)
	if err != nil {
		return "", ai.Upstream("gemini generate content", err)
	}

	var sb strings.Builder
	for _, part := range candidateParts(resp) {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: no text parts", ai.ErrEmptyResponse)
	}
	return sb.String(), nil
}

func userContent(parts []ai.Part) []*genai.Content {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			out = append(out, &genai.Part{InlineData: &genai.Blob{Data: p.Image, MIMEType: p.MIMEType}})
			continue
		}
		out = append(out, &genai.Part{Text: p.Text})
	}
	return []*genai.Content{{Role: "user", Parts: out}}
}

func candidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}
