package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/JaimeStill/citygarden/pkg/ai"
)

// Images generates and edits images with a DALL-E or GPT image model.
type Images struct {
	client    *openai.Client
	model     string
	editModel string
	size      string
}

// NewImages creates an image client for cfg.Model and cfg.EditModel.
func NewImages(cfg ai.ProviderConfig, opts ...option.RequestOption) *Images {
	edit := cfg.EditModel
	if edit == "" {
		edit = cfg.Model
	}
	return &Images{
		client:    newSDK(opts),
		model:     cfg.Model,
		editModel: edit,
		size:      cfg.Size,
	}
}

func (c *Images) Generate(ctx context.Context, prompt string) ([]byte, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.model),
		N:      openai.Int(1),
	}
	if c.size != "" {
		params.Size = openai.ImageGenerateParamsSize(c.size)
	}
	// GPT image models always return base64 and reject response_format.
	if isDallE(c.model) {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, ai.Upstream("openai image generate", err)
	}
	return decodeFirst(resp)
}

func (c *Images) Edit(ctx context.Context, prompt string, images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: edit requires at least one image", ai.ErrUnsupported)
	}

	files := make([]io.Reader, len(images))
	for i, img := range images {
		mime := ai.DetectMIME(img)
		name := fmt.Sprintf("reference-%d.%s", i, strings.TrimPrefix(mime, "image/"))
		files[i] = openai.File(bytes.NewReader(img), name, mime)
	}

	params := openai.ImageEditParams{
		Image:  openai.ImageEditParamsImageUnion{OfFileArray: files},
		Prompt: prompt,
		Model:  openai.ImageModel(c.editModel),
		N:      openai.Int(1),
	}
	if c.size != "" {
		params.Size = openai.ImageEditParamsSize(c.size)
	}
	if isDallE(c.editModel) {
		params.ResponseFormat = openai.ImageEditParamsResponseFormatB64JSON
	}

	resp, err := c.client.Images.Edit(ctx, params)
	if err != nil {
		return nil, ai.Upstream("openai image edit", err)
	}
	return decodeFirst(resp)
}

func decodeFirst(resp *openai.ImagesResponse) ([]byte, error) {
	if resp == nil || len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: no image data", ai.ErrEmptyResponse)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}

func isDallE(model string) bool {
	return strings.HasPrefix(model, "dall-e")
}
