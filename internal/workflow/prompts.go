package workflow

import (
	"fmt"

	"github.com/JaimeStill/citygarden/internal/prompts"
)

var (
	keyComplianceSystem = prompts.Key{Template: "compliance", Variant: "system"}
	keyComplianceUser   = prompts.Key{Template: "compliance", Variant: "user"}
	keyAnalysisSystem   = prompts.Key{Template: "analysis", Variant: "system"}
	keyAnalysisUser     = prompts.Key{Template: "analysis", Variant: "user"}
	keyRecommendSystem  = prompts.Key{Template: "recommendation", Variant: "system"}
	keyRecommendUser    = prompts.Key{Template: "recommendation", Variant: "user"}
	keyGardenImage      = prompts.Key{Template: "garden_image", Variant: "prompt"}
	keyPlantImage       = prompts.Key{Template: "plant_image", Variant: "prompt"}
)

// PromptKeys lists every template variant the pipeline renders.
func PromptKeys() []prompts.Key {
	return []prompts.Key{
		keyComplianceSystem,
		keyComplianceUser,
		keyAnalysisSystem,
		keyAnalysisUser,
		keyRecommendSystem,
		keyRecommendUser,
		keyGardenImage,
		keyPlantImage,
	}
}

type analysisData struct {
	Latitude  float64
	Longitude float64
	Climate   string
}

type recommendData struct {
	Preferences string
	GardenInfo  string
}

type gardenImageData struct {
	Plants []Plant
}

func render(p Prompts, key prompts.Key, data any) (string, error) {
	text, err := p.Render(key, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPromptUnavailable, err)
	}
	return text, nil
}
