package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/citygarden/pkg/formatting"
	"github.com/JaimeStill/citygarden/pkg/graph"
)

const climateUnavailable = "climate data unavailable"

const analysisPreamble = "I've analyzed your garden conditions based on the provided information. "

type analysisField struct {
	keys     []string
	fallback string
	set      func(*State, string)
}

// Models sometimes answer with environmental_factors; both spellings are accepted.
var analysisFields = []analysisField{
	{[]string{"sun_exposure"}, NoInputInformation, func(s *State, v string) { s.SunExposure = v }},
	{[]string{"micro_climate"}, NoInputInformation, func(s *State, v string) { s.MicroClimate = v }},
	{[]string{"hardscape_elements"}, NoInputInformation, func(s *State, v string) { s.HardscapeElements = v }},
	{[]string{"plant_inventory"}, NewGarden, func(s *State, v string) { s.PlantInventory = v }},
	{[]string{"environment_factors", "environmental_factors"}, NoInputInformation, func(s *State, v string) { s.EnvironmentFactors = v }},
	{[]string{"wind_pattern"}, NoInputInformation, func(s *State, v string) { s.WindPattern = v }},
}

// AnalysisNode requests a structured assessment of the site and extracts
// each environmental field independently, falling back to its sentinel.
func AnalysisNode(rt *Runtime) graph.Node[State] {
	return func(ctx context.Context, s State) (State, error) {
		data := analysisData{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Climate:   siteClimate(ctx, rt, s.Latitude, s.Longitude),
		}

		req, err := imageRequest(rt.Prompts, keyAnalysisSystem, keyAnalysisUser, data, s.Images)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
		}

		resp, err := rt.Chat.Complete(ctx, req)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
		}

		missing := applyAnalysis(&s, resp)
		s.appendMessage(analysisPreamble + resp)

		rt.Logger.InfoContext(
			ctx, "analysis node complete",
			"missing_fields", missing,
			"climate", data.Climate != "" && data.Climate != climateUnavailable,
		)
		return s, nil
	}
}

func applyAnalysis(s *State, resp string) []string {
	var missing []string
	for _, f := range analysisFields {
		value, ok := extractAny(resp, f.keys)
		if !ok {
			value = f.fallback
			missing = append(missing, f.keys[0])
		}
		f.set(s, value)
	}
	return missing
}

func extractAny(text string, keys []string) (string, bool) {
	for _, key := range keys {
		v, err := formatting.Extract(text, key)
		if err == nil {
			// A blank value carries no more than an absent key.
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
			continue
		}
		if errors.Is(err, formatting.ErrInvalidInput) {
			return "", false
		}
	}
	return "", false
}

func siteClimate(ctx context.Context, rt *Runtime, latitude, longitude float64) string {
	if rt.Climate == nil {
		return ""
	}

	summary, err := rt.Climate.Summary(ctx, latitude, longitude)
	if err != nil {
		rt.Logger.WarnContext(ctx, "climate summary unavailable", "error", err)
		return climateUnavailable
	}
	return summary.String()
}
