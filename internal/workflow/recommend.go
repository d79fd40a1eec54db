package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/formatting"
	"github.com/JaimeStill/citygarden/pkg/graph"
)

const reportNarration = "I've generated a comprehensive garden design report for you."

type recommendResponse struct {
	PlantRecommendations *[]Plant `json:"plant_recommendations"`
}

// RecommendNode requests plant recommendations for the analyzed site. An
// unparseable response marks the list unavailable without failing; the raw
// report is always kept in FinalOutput.
func RecommendNode(rt *Runtime) graph.Node[State] {
	return func(ctx context.Context, s State) (State, error) {
		data := recommendData{
			Preferences: s.StylePreferences,
			GardenInfo:  s.GardenInfo(),
		}

		sys, err := render(rt.Prompts, keyRecommendSystem, data)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrRecommendFailed, err)
		}
		user, err := render(rt.Prompts, keyRecommendUser, data)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrRecommendFailed, err)
		}

		resp, err := rt.Chat.Complete(ctx, ai.Request{System: sys, Parts: []ai.Part{ai.Text(user)}})
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrRecommendFailed, err)
		}

		s.PlantRecommendations = parseRecommendations(resp)
		s.FinalOutput = resp
		s.appendMessage(reportNarration)
		s.appendMessage(resp)

		rt.Logger.InfoContext(
			ctx, "recommend node complete",
			"plants", len(s.PlantRecommendations.Plants),
			"parsed", s.PlantRecommendations.Status == RecommendationsParsed,
		)
		return s, nil
	}
}

func parseRecommendations(resp string) Recommendations {
	parsed, err := formatting.Parse[recommendResponse](resp)
	if err != nil || parsed.PlantRecommendations == nil {
		return Recommendations{Status: RecommendationsUnavailable}
	}
	plants := *parsed.PlantRecommendations
	if plants == nil {
		plants = []Plant{}
	}
	return Recommendations{Status: RecommendationsParsed, Plants: plants}
}
