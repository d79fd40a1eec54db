package workflow

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Sentinel values written in place of fields that are unset or could not be
// determined. Readers must tolerate every sentinel.
const (
	NotAnalyzed        = "Not analyzed"
	NoInputInformation = "None, no input information"
	NewGarden          = "None currently, new garden"
	NoInformation      = "None, no information"
)

// Verdict is the tagged result of the compliance gate.
type Verdict int

const (
	// VerdictUnset means the compliance stage has not run.
	VerdictUnset Verdict = iota
	// VerdictPass approves the images for analysis.
	VerdictPass
	// VerdictFail rejects the request.
	VerdictFail
)

// ParseVerdict normalizes a model response. Only "pass" (ignoring case and
// surrounding whitespace) approves; anything else fails closed.
func ParseVerdict(s string) Verdict {
	if strings.EqualFold(strings.TrimSpace(s), "pass") {
		return VerdictPass
	}
	return VerdictFail
}

// Approved reports whether the verdict lets the pipeline continue.
func (v Verdict) Approved() bool {
	return v == VerdictPass
}

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "Pass"
	case VerdictFail:
		return "Fail"
	default:
		return ""
	}
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*v = VerdictUnset
		return nil
	}
	*v = ParseVerdict(s)
	return nil
}

// PlantID accepts numeric or string identifiers from model output.
type PlantID string

func (id *PlantID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = PlantID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("plant id: %w", err)
	}
	*id = PlantID(n.String())
	return nil
}

// Plant is one recommended plant.
type Plant struct {
	ID                PlantID `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	GrowingConditions string  `json:"growing_conditions,omitempty"`
	PlantingTips      string  `json:"planting_tips,omitempty"`
	CareTips          string  `json:"care_tips,omitempty"`
	HarvestingTips    string  `json:"harvesting_tips,omitempty"`
}

// RecommendationStatus tells an empty list apart from a response that
// could not be parsed.
type RecommendationStatus int

const (
	RecommendationsPending RecommendationStatus = iota
	RecommendationsParsed
	RecommendationsUnavailable
)

// Recommendations holds the parsed plant list and its status.
type Recommendations struct {
	Status RecommendationStatus
	Plants []Plant
}

// Available reports whether there is a parsed, non-empty list to act on.
func (r Recommendations) Available() bool {
	return r.Status == RecommendationsParsed && len(r.Plants) > 0
}

// List returns the parsed plants, never nil.
func (r Recommendations) List() []Plant {
	if r.Status != RecommendationsParsed || r.Plants == nil {
		return []Plant{}
	}
	return r.Plants
}

// MarshalJSON encodes the plant list, or the sentinel text when no list exists.
func (r Recommendations) MarshalJSON() ([]byte, error) {
	switch r.Status {
	case RecommendationsParsed:
		return json.Marshal(r.List())
	case RecommendationsUnavailable:
		return json.Marshal(NoInformation)
	default:
		return json.Marshal(NotAnalyzed)
	}
}

func (r *Recommendations) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.Plants = nil
		if s == NoInformation {
			r.Status = RecommendationsUnavailable
		} else {
			r.Status = RecommendationsPending
		}
		return nil
	}

	var plants []Plant
	if err := json.Unmarshal(b, &plants); err != nil {
		return err
	}
	r.Status, r.Plants = RecommendationsParsed, plants
	return nil
}

// PlantImage is the generated illustration of one recommended plant. A
// failed generation keeps its entry with Error set and no URL.
type PlantImage struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Message is one narration entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Input carries the caller-validated, pre-screened request data.
type Input struct {
	Images           [][]byte
	Latitude         float64
	Longitude        float64
	StylePreferences string
	Location         string
}

// State is the record threaded through every stage. Stages receive it by
// value and return the updated copy.
type State struct {
	Images           [][]byte `json:"-"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	StylePreferences string   `json:"style_preferences"`
	Location         string   `json:"location"`

	ComplianceCheck Verdict `json:"compliance_check"`

	SunExposure        string `json:"sun_exposure"`
	MicroClimate       string `json:"micro_climate"`
	HardscapeElements  string `json:"hardscape_elements"`
	PlantInventory     string `json:"plant_inventory"`
	EnvironmentFactors string `json:"environment_factors"`
	WindPattern        string `json:"wind_pattern"`

	PlantRecommendations Recommendations `json:"plant_recommendations"`
	FinalOutput          string          `json:"final_output"`
	GardenImageURL       string          `json:"garden_image_url"`
	PlantImages          []PlantImage    `json:"plant_images"`

	Messages []Message `json:"messages"`
}

// NewState builds the initial record with every derived field at its
// NotAnalyzed sentinel.
func NewState(in Input) State {
	return State{
		Images:             slices.Clone(in.Images),
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		StylePreferences:   in.StylePreferences,
		Location:           in.Location,
		SunExposure:        NotAnalyzed,
		MicroClimate:       NotAnalyzed,
		HardscapeElements:  NotAnalyzed,
		PlantInventory:     NotAnalyzed,
		EnvironmentFactors: NotAnalyzed,
		WindPattern:        NotAnalyzed,
		PlantImages:        []PlantImage{},
		Messages:           []Message{},
	}
}

// Clone copies every slice the stages write to. Image bytes are shared;
// stages never modify them.
func (s State) Clone() State {
	c := s
	c.Images = slices.Clone(s.Images)
	c.PlantRecommendations.Plants = slices.Clone(s.PlantRecommendations.Plants)
	c.PlantImages = slices.Clone(s.PlantImages)
	c.Messages = slices.Clone(s.Messages)
	return c
}

// GardenInfo renders the six environmental fields for the recommendation prompt.
func (s State) GardenInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sun exposure: %s\n", s.SunExposure)
	fmt.Fprintf(&b, "Micro climate: %s\n", s.MicroClimate)
	fmt.Fprintf(&b, "Hardscape elements: %s\n", s.HardscapeElements)
	fmt.Fprintf(&b, "Plant inventory: %s\n", s.PlantInventory)
	fmt.Fprintf(&b, "Environment factors: %s\n", s.EnvironmentFactors)
	fmt.Fprintf(&b, "Wind pattern: %s", s.WindPattern)
	return b.String()
}

func (s *State) appendMessage(content string) {
	s.Messages = append(s.Messages, Message{Role: "assistant", Content: content})
}
