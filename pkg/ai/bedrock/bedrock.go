// Package bedrock implements ai.Client with the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/JaimeStill/citygarden/pkg/ai"
)

const defaultRegion = "us-east-1"

// ErrThrottled indicates Bedrock rejected the call for rate or quota limits.
var ErrThrottled = errors.New("bedrock throttled")

// ConverseAPI is the subset of the Bedrock runtime client used here.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Chat completes prompts with a Bedrock-hosted model.
type Chat struct {
	api         ConverseAPI
	model       string
	maxTokens   int32
	temperature float32
}

// New loads the default AWS credential chain for cfg.Region and returns a
// completion client for cfg.Model.
func New(ctx context.Context, cfg ai.ProviderConfig) (*Chat, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(max(cfg.MaxRetries, 0)+1),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI returns a completion client backed by api.
func NewWithAPI(api ConverseAPI, cfg ai.ProviderConfig) *Chat {
	return &Chat{
		api:         api,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
	}
}

func (c *Chat) Complete(ctx context.Context, req ai.Request) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: contentBlocks(req.Parts),
		}},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	inference := &types.InferenceConfiguration{}
	if c.maxTokens > 0 {
		inference.MaxTokens = aws.Int32(c.maxTokens)
	}
	if c.temperature > 0 {
		inference.Temperature = aws.Float32(c.temperature)
	}
	input.InferenceConfig = inference

	output, err := c.api.Converse(ctx, input)
	if err != nil {
		return "", mapError(err)
	}

	msg, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("%w: no message output", ai.ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: stop reason %s", ai.ErrEmptyResponse, output.StopReason)
	}
	return sb.String(), nil
}

func contentBlocks(parts []ai.Part) []types.ContentBlock {
	out := make([]types.ContentBlock, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			out = append(out, &types.ContentBlockMemberImage{Value: types.ImageBlock{
				Format: imageFormat(p.MIMEType),
				Source: &types.ImageSourceMemberBytes{Value: p.Image},
			}})
			continue
		}
		out = append(out, &types.ContentBlockMemberText{Value: p.Text})
	}
	return out
}

func imageFormat(mime string) types.ImageFormat {
	switch mime {
	case "image/png":
		return types.ImageFormatPng
	case "image/gif":
		return types.ImageFormatGif
	case "image/webp":
		return types.ImageFormatWebp
	default:
		return types.ImageFormatJpeg
	}
}

func mapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return ai.Upstream("bedrock converse", fmt.Errorf("%w: %w", ErrThrottled, err))
		}
	}
	return ai.Upstream("bedrock converse", err)
}
