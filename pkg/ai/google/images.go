package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/JaimeStill/citygarden/pkg/ai"
)

// Images generates with Imagen and edits with a Gemini image model.
type Images struct {
	client    *genai.Client
	model     string
	editModel string
	aspect    string
}

// NewImages creates an image client. cfg.Model names the Imagen model and
// cfg.EditModel the Gemini model that accepts reference images.
func NewImages(client *genai.Client, cfg ai.ProviderConfig) *Images {
	edit := cfg.EditModel
	if edit == "" {
		edit = cfg.Model
	}
	return &Images{
		client:    client,
		model:     cfg.Model,
		editModel: edit,
		aspect:    aspectRatio(cfg.Size),
	}
}

func (c *Images) Generate(ctx context.Context, prompt string) ([]byte, error) {
	config := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    c.aspect,
	}

	resp, err := c.client.Models.GenerateImages(ctx, c.model, prompt, config)
	if err != nil {
		return nil, ai.Upstream("imagen generate", err)
	}
	for _, img := range resp.GeneratedImages {
		if img.Image != nil && len(img.Image.ImageBytes) > 0 {
			return img.Image.ImageBytes, nil
		}
	}
	return nil, fmt.Errorf("%w: no generated images", ai.ErrEmptyResponse)
}

func (c *Images) Edit(ctx context.Context, prompt string, images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: edit requires at least one image", ai.ErrUnsupported)
	}

	parts := make([]ai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, ai.Image(img))
	}
	parts = append(parts, ai.Text(prompt))

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.editModel, userContent(parts), config)
	if err != nil {
		return nil, ai.Upstream("gemini image edit", err)
	}
	for _, part := range candidateParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("%w: no inline image data", ai.ErrEmptyResponse)
}

func aspectRatio(size string) string {
	switch size {
	case "1792x1024", "1536x1024":
		return "16:9"
	case "1024x1792", "1024x1536":
		return "9:16"
	default:
		return "1:1"
	}
}
