// Package safety screens user-submitted images with Azure AI Content Safety
// before they reach the planning workflow.
package safety

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/sync/errgroup"
)

const (
	moduleName    = "citygarden/safety"
	moduleVersion = "v1.0.0"
	keyHeader     = "Ocp-Apim-Subscription-Key"
	tokenScope    = "https://cognitiveservices.azure.com/.default"
)

var (
	// ErrUnsafeContent indicates an image exceeded the accepted severity.
	ErrUnsafeContent = errors.New("image failed content safety screening")
	// ErrUpstream indicates the content safety service could not be reached
	// or returned an error.
	ErrUpstream = errors.New("content safety service error")
)

// Analysis holds the severity reported for each harm category.
type Analysis map[string]int

// Worst returns the highest-severity category.
func (a Analysis) Worst() (string, int) {
	category, severity := "", -1
	for c, s := range a {
		if s > severity || (s == severity && c < category) {
			category, severity = c, s
		}
	}
	return category, severity
}

// Client analyzes images against the content safety service.
type Client struct {
	pipeline    runtime.Pipeline
	endpoint    string
	apiVersion  string
	maxSeverity int
	enabled     bool
	logger      *slog.Logger
}

// New creates a Client. An empty APIKey authenticates with Entra ID through
// DefaultAzureCredential. A disabled Client accepts every image.
func New(cfg *Config, logger *slog.Logger, opts *policy.ClientOptions) (*Client, error) {
	c := &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiVersion:  cfg.APIVersion,
		maxSeverity: cfg.MaxSeverity,
		enabled:     cfg.Enabled,
		logger:      logger.With("system", "safety"),
	}
	if !cfg.Enabled {
		return c, nil
	}

	if opts == nil {
		opts = &policy.ClientOptions{}
	}
	opts.Retry.MaxRetries = cfg.MaxRetries
	opts.Retry.TryTimeout = cfg.TimeoutDuration()

	var auth policy.Policy
	if cfg.APIKey != "" {
		auth = runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(cfg.APIKey), keyHeader, &runtime.KeyCredentialPolicyOptions{
			InsecureAllowCredentialWithHTTP: strings.HasPrefix(c.endpoint, "http://"),
		})
	} else {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("content safety credential: %w", err)
		}
		auth = runtime.NewBearerTokenPolicy(cred, []string{tokenScope}, nil)
	}

	c.pipeline = runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{auth},
	}, opts)
	return c, nil
}

type analyzeRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	OutputType string `json:"outputType"`
}

type analyzeResponse struct {
	CategoriesAnalysis []struct {
		Category string `json:"category"`
		Severity int    `json:"severity"`
	} `json:"categoriesAnalysis"`
}

// AnalyzeImage returns per-category severities for one image.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte) (Analysis, error) {
	endpoint := c.endpoint + "/contentsafety/image:analyze?" + url.Values{"api-version": {c.apiVersion}}.Encode()

	req, err := runtime.NewRequest(ctx, http.MethodPost, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}

	var body analyzeRequest
	body.Image.Content = base64.StdEncoding.EncodeToString(image)
	body.OutputType = "FourSeverityLevels"
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrUpstream, err)
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, runtime.NewResponseError(resp))
	}

	var out analyzeResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}

	analysis := make(Analysis, len(out.CategoriesAnalysis))
	for _, ca := range out.CategoriesAnalysis {
		analysis[ca.Category] = ca.Severity
	}
	return analysis, nil
}

// Screen analyzes every image concurrently and fails with ErrUnsafeContent
// when any category exceeds the configured maximum severity.
func (c *Client) Screen(ctx context.Context, images [][]byte) error {
	if !c.enabled {
		c.logger.DebugContext(ctx, "content safety disabled, skipping screening", "images", len(images))
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			analysis, err := c.AnalyzeImage(ctx, img)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}

			category, severity := analysis.Worst()
			if severity > c.maxSeverity {
				c.logger.WarnContext(ctx, "image rejected by content safety",
					"image", i,
					"category", category,
					"severity", severity,
				)
				return fmt.Errorf("%w: image %d: %s severity %d", ErrUnsafeContent, i, category, severity)
			}
			return nil
		})
	}
	return g.Wait()
}
