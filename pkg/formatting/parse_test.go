package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/citygarden/pkg/formatting"
)

type plantList struct {
	Plants []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"plant_recommendations"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{"direct json", `{"plant_recommendations":[{"id":1,"name":"Basil"}]}`, 1},
		{"padded json", "  {\"plant_recommendations\":[]}  ", 0},
		{"fenced json", "```json\n{\"plant_recommendations\":[{\"id\":1,\"name\":\"Mint\"},{\"id\":2,\"name\":\"Sage\"}]}\n```", 2},
		{"bare fence", "```\n{\"plant_recommendations\":[{\"id\":1,\"name\":\"Thyme\"}]}\n```", 1},
		{"fence with commentary", "Report:\n```json\n{\"plant_recommendations\":[{\"id\":3,\"name\":\"Lavender\"}]}\n```\nEnjoy.", 1},
		{"unterminated fence", "```json\n{\"plant_recommendations\":[{\"id\":4,\"name\":\"Chives\"}]}", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[plantList](tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if len(got.Plants) != tt.count {
				t.Errorf("len(Plants) = %d, want %d", len(got.Plants), tt.count)
			}
		})
	}
}

func TestParseFailure(t *testing.T) {
	inputs := map[string]string{
		"prose":        "I recommend basil, mint, and sage.",
		"empty":        "",
		"broken fence": "```json\n{broken\n```",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := formatting.Parse[plantList](input)
			if !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("error = %v, want ErrParseFailed", err)
			}
		})
	}
}
