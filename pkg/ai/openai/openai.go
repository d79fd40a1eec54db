// Package openai implements ai.Client and ai.ImageClient against the OpenAI
// API and Azure OpenAI deployments.
package openai

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/JaimeStill/citygarden/pkg/ai"
)

// RequestOptions builds SDK options for cfg. Azure providers authenticate
// with the API key when set, otherwise with cred.
func RequestOptions(cfg ai.ProviderConfig, cred azcore.TokenCredential) []option.RequestOption {
	var opts []option.RequestOption

	switch cfg.Provider {
	case ai.ProviderAzure:
		opts = append(opts, azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion))
		if cfg.APIKey != "" {
			opts = append(opts, azure.WithAPIKey(cfg.APIKey))
		} else if cred != nil {
			opts = append(opts, azure.WithTokenCredential(cred))
		}
	default:
		if cfg.APIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.APIKey))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(cfg.Endpoint))
		}
	}

	return append(opts, option.WithMaxRetries(cfg.MaxRetries))
}

func newSDK(opts []option.RequestOption) *openai.Client {
	client := openai.NewClient(opts...)
	return &client
}
