package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/citygarden/pkg/graph"
)

const pngType = "image/png"

// GardenImageNode edits the submitted photos into one illustration of the
// space planted with the recommendations. Without a usable recommendation
// list it leaves the state unchanged.
func GardenImageNode(rt *Runtime, cfg *Config) graph.Node[State] {
	return func(ctx context.Context, s State) (State, error) {
		if !s.PlantRecommendations.Available() {
			rt.Logger.InfoContext(ctx, "garden image skipped", "reason", "no recommendations")
			return s, nil
		}

		prompt, err := render(rt.Prompts, keyGardenImage, gardenImageData{Plants: s.PlantRecommendations.Plants})
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrGardenImageFailed, err)
		}

		img, err := rt.Images.Edit(ctx, prompt, s.Images)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrGardenImageFailed, err)
		}

		url, err := rt.Storage.Upload(ctx, cfg.OutputContainer, blobName("garden_image"), img, pngType)
		if err != nil {
			return s, fmt.Errorf("%w: upload: %w", ErrGardenImageFailed, err)
		}

		s.GardenImageURL = url

		rt.Logger.InfoContext(ctx, "garden image node complete", "url", url, "bytes", len(img))
		return s, nil
	}
}

// PlantImagesNode generates one illustration per recommended plant with
// bounded concurrency. Results keep recommendation order; a failed plant
// keeps its entry with an error note and does not stop the others.
func PlantImagesNode(rt *Runtime, cfg *Config) graph.Node[State] {
	return func(ctx context.Context, s State) (State, error) {
		if !s.PlantRecommendations.Available() {
			rt.Logger.InfoContext(ctx, "plant images skipped", "reason", "no recommendations")
			return s, nil
		}

		plants := s.PlantRecommendations.Plants
		results := make([]PlantImage, len(plants))
		limiter := newLimiter(cfg)

		var g errgroup.Group
		g.SetLimit(max(cfg.PlantImageConcurrency, 1))

		for i, plant := range plants {
			results[i].Name = plant.Name

			g.Go(func() error {
				url, err := plantImage(ctx, rt, cfg, limiter, i, plant)
				if err != nil {
					results[i].Error = err.Error()
					rt.Logger.WarnContext(ctx, "plant image failed", "plant", plant.Name, "error", err)
					return nil
				}
				results[i].ImageURL = url
				return nil
			})
		}
		g.Wait()

		if err := ctx.Err(); err != nil {
			return s, err
		}

		s.PlantImages = results

		failed := 0
		for _, r := range results {
			if r.Error != "" {
				failed++
			}
		}
		rt.Logger.InfoContext(
			ctx, "plant images node complete",
			"plants", len(results),
			"failed", failed,
		)
		return s, nil
	}
}

func plantImage(ctx context.Context, rt *Runtime, cfg *Config, limiter *rate.Limiter, i int, plant Plant) (string, error) {
	if err := limiter.Wait(ctx); err != nil {
		return "", err
	}

	prompt, err := render(rt.Prompts, keyPlantImage, plant)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPlantImageFailed, err)
	}

	img, err := rt.Images.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPlantImageFailed, err)
	}

	url, err := rt.Storage.Upload(ctx, cfg.OutputContainer, blobName(plantSlug(plant.Name, i)), img, pngType)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %w", ErrPlantImageFailed, err)
	}
	return url, nil
}

func newLimiter(cfg *Config) *rate.Limiter {
	if cfg.PlantImageRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(cfg.PlantImageRate), max(cfg.PlantImageBurst, 1))
}

// blobName prefixes suffix with a ULID so generated images sort by creation time.
func blobName(suffix string) string {
	return ulid.Make().String() + "-" + suffix + ".png"
}

func plantSlug(name string, index int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return fmt.Sprintf("plant-%d", index+1)
	}
	return slug
}
