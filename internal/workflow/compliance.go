package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/citygarden/internal/prompts"
	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/graph"
)

// ComplianceNode asks the model whether the photos show a growing space
// and records the normalized verdict. It performs a single call.
func ComplianceNode(rt *Runtime) graph.Node[State] {
	return func(ctx context.Context, s State) (State, error) {
		req, err := imageRequest(rt.Prompts, keyComplianceSystem, keyComplianceUser, nil, s.Images)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrComplianceFailed, err)
		}

		resp, err := rt.Chat.Complete(ctx, req)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrComplianceFailed, err)
		}

		s.ComplianceCheck = ParseVerdict(resp)

		rt.Logger.InfoContext(
			ctx, "compliance node complete",
			"verdict", s.ComplianceCheck.String(),
			"images", len(s.Images),
		)
		return s, nil
	}
}

// imageRequest renders a system and user prompt and attaches every image
// after the user text.
func imageRequest(p Prompts, system, user prompts.Key, data any, images [][]byte) (ai.Request, error) {
	sys, err := render(p, system, data)
	if err != nil {
		return ai.Request{}, err
	}
	text, err := render(p, user, data)
	if err != nil {
		return ai.Request{}, err
	}

	parts := make([]ai.Part, 0, len(images)+1)
	parts = append(parts, ai.Text(text))
	for _, img := range images {
		parts = append(parts, ai.Image(img))
	}
	return ai.Request{System: sys, Parts: parts}, nil
}
