package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/JaimeStill/citygarden/pkg/ai"
)

// Chat completes prompts with a chat completions model.
type Chat struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewChat creates a completion client for cfg.Model.
func NewChat(cfg ai.ProviderConfig, opts ...option.RequestOption) *Chat {
	return &Chat{
		client:      newSDK(opts),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *Chat) Complete(ctx context.Context, req ai.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages(req),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", ai.Upstream("openai chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ai.ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: finish reason %s", ai.ErrEmptyResponse, resp.Choices[0].FinishReason)
	}
	return content, nil
}

func messages(req ai.Request) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		out = append(out, openai.SystemMessage(req.System))
	}

	if len(req.Images()) == 0 {
		var text []string
		for _, p := range req.Parts {
			text = append(text, p.Text)
		}
		return append(out, openai.UserMessage(strings.Join(text, "\n\n")))
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: ai.DataURI(p),
			}))
			continue
		}
		parts = append(parts, openai.TextContentPart(p.Text))
	}

	return append(out, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	})
}
