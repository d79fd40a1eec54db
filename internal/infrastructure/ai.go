package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/ai/anthropic"
	"github.com/JaimeStill/citygarden/pkg/ai/bedrock"
	"github.com/JaimeStill/citygarden/pkg/ai/google"
	"github.com/JaimeStill/citygarden/pkg/ai/openai"
)

// newAI builds the chat and image clients, each guarded by a circuit
// breaker and traced.
func newAI(ctx context.Context, cfg *ai.Config, logger *slog.Logger) (ai.Client, ai.ImageClient, error) {
	var cred azcore.TokenCredential
	if needsEntra(cfg.Chat) || needsEntra(cfg.Images) {
		c, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("azure credential: %w", err)
		}
		cred = c
	}

	chat, err := newChat(ctx, cfg.Chat, cred)
	if err != nil {
		return nil, nil, fmt.Errorf("chat client: %w", err)
	}
	images, err := newImages(ctx, cfg.Images, cred)
	if err != nil {
		return nil, nil, fmt.Errorf("image client: %w", err)
	}

	logger = logger.With("system", "ai")
	logger.Info("ai clients configured",
		"chat_provider", cfg.Chat.Provider,
		"chat_model", cfg.Chat.Model,
		"images_provider", cfg.Images.Provider,
		"images_model", cfg.Images.Model,
	)

	return ai.NewTraced(
			ai.NewBreaker(chat, "chat", cfg.Breaker, logger),
			cfg.Chat.Provider, cfg.Chat.Model,
		),
		ai.NewTracedImages(
			ai.NewImageBreaker(images, "images", cfg.Breaker, logger),
			cfg.Images.Provider, cfg.Images.Model,
		),
		nil
}

func needsEntra(p ai.ProviderConfig) bool {
	return p.Provider == ai.ProviderAzure && p.APIKey == ""
}

func newChat(ctx context.Context, cfg ai.ProviderConfig, cred azcore.TokenCredential) (ai.Client, error) {
	switch cfg.Provider {
	case ai.ProviderOpenAI, ai.ProviderAzure:
		return openai.NewChat(cfg, openai.RequestOptions(cfg, cred)...), nil
	case ai.ProviderGoogle:
		client, err := google.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return google.NewChat(client, cfg), nil
	case ai.ProviderAnthropic:
		return anthropic.NewChat(cfg), nil
	case ai.ProviderBedrock:
		return bedrock.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported chat provider %q", cfg.Provider)
	}
}

func newImages(ctx context.Context, cfg ai.ProviderConfig, cred azcore.TokenCredential) (ai.ImageClient, error) {
	switch cfg.Provider {
	case ai.ProviderOpenAI, ai.ProviderAzure:
		return openai.NewImages(cfg, openai.RequestOptions(cfg, cred)...), nil
	case ai.ProviderGoogle:
		client, err := google.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return google.NewImages(client, cfg), nil
	default:
		return nil, fmt.Errorf("unsupported image provider %q", cfg.Provider)
	}
}
