package plans

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/citygarden/internal/workflow"
)

// MaxImages is the most photos accepted per request.
const MaxImages = 3

// Plan is a persisted pipeline run.
type Plan struct {
	ID                   uuid.UUID             `json:"id"`
	Status               workflow.Status       `json:"status"`
	Location             string                `json:"location"`
	Latitude             float64               `json:"latitude"`
	Longitude            float64               `json:"longitude"`
	StylePreferences     string                `json:"style_preferences"`
	ImageURLs            []string              `json:"image_urls"`
	Analysis             Analysis              `json:"analysis"`
	PlantRecommendations []workflow.Plant      `json:"plant_recommendations"`
	FinalOutput          string                `json:"final_output"`
	GardenImageURL       string                `json:"garden_image_url"`
	PlantImages          []workflow.PlantImage `json:"plant_images"`
	Path                 []string              `json:"path"`
	Error                *string               `json:"error,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
}

// Analysis holds the compliance verdict and environmental fields of a run.
type Analysis struct {
	ComplianceCheck    string `json:"compliance_check"`
	SunExposure        string `json:"sun_exposure"`
	MicroClimate       string `json:"micro_climate"`
	HardscapeElements  string `json:"hardscape_elements"`
	PlantInventory     string `json:"plant_inventory"`
	EnvironmentFactors string `json:"environment_factors"`
	WindPattern        string `json:"wind_pattern"`
}

// UserPreferences are the style choices submitted with a request.
type UserPreferences struct {
	GrowType   string `json:"growType"`
	SubType    string `json:"subType"`
	CycleType  string `json:"cycleType"`
	WinterType string `json:"winterType"`
}

// Style renders the preferences as the pipeline's style description.
func (p UserPreferences) Style() string {
	grow := strings.TrimSpace(p.GrowType + " " + p.SubType)
	return fmt.Sprintf("preferred grow type: %s, preferred cycle type: %s, preferred winter type: %s",
		grow, strings.TrimSpace(p.CycleType), strings.TrimSpace(p.WinterType))
}

// Location is the site of the photographed space.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

// CreateRequest is the body of a garden plan request.
type CreateRequest struct {
	ImageURLs       []string        `json:"image_urls"`
	UserPreferences UserPreferences `json:"user_preferences"`
	Location        Location        `json:"location"`
}

// Validate checks image count and coordinate ranges.
func (r CreateRequest) Validate() error {
	switch n := len(r.ImageURLs); {
	case n == 0:
		return fmt.Errorf("%w: at least one image url is required", ErrInvalidRequest)
	case n > MaxImages:
		return fmt.Errorf("%w: at most %d images are allowed, got %d", ErrInvalidRequest, MaxImages, n)
	}
	for i, u := range r.ImageURLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("%w: image url %d is empty", ErrInvalidRequest, i)
		}
	}

	lat, lon := r.Location.Latitude, r.Location.Longitude
	if lat == nil || lon == nil {
		return fmt.Errorf("%w: location latitude and longitude are required", ErrInvalidRequest)
	}
	if *lat < -90 || *lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidRequest, *lat)
	}
	if *lon < -180 || *lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidRequest, *lon)
	}
	return nil
}

// Response is the projection of a run returned to the caller.
type Response struct {
	ID                   uuid.UUID             `json:"id"`
	Status               workflow.Status       `json:"status"`
	GardenImageURL       string                `json:"garden_image_url"`
	PlantRecommendations []workflow.Plant      `json:"plant_recommendations"`
	PlantImages          []workflow.PlantImage `json:"plant_images"`
}

// Response projects a stored plan to the caller-facing shape.
func (p *Plan) Response() Response {
	return Response{
		ID:                   p.ID,
		Status:               p.Status,
		GardenImageURL:       p.GardenImageURL,
		PlantRecommendations: nonNil(p.PlantRecommendations),
		PlantImages:          nonNil(p.PlantImages),
	}
}

// fromResult builds the stored plan for a pipeline run. A nil result
// records a run that failed before producing state.
func fromResult(id uuid.UUID, req CreateRequest, res *workflow.Result, runErr error) Plan {
	p := Plan{
		ID:               id,
		Status:           workflow.StatusFailed,
		Location:         req.Location.Address,
		Latitude:         *req.Location.Latitude,
		Longitude:        *req.Location.Longitude,
		StylePreferences: req.UserPreferences.Style(),
		ImageURLs:        req.ImageURLs,
	}

	if res != nil {
		s := res.State
		p.Status = res.Status
		p.Analysis = Analysis{
			ComplianceCheck:    s.ComplianceCheck.String(),
			SunExposure:        s.SunExposure,
			MicroClimate:       s.MicroClimate,
			HardscapeElements:  s.HardscapeElements,
			PlantInventory:     s.PlantInventory,
			EnvironmentFactors: s.EnvironmentFactors,
			WindPattern:        s.WindPattern,
		}
		p.PlantRecommendations = s.PlantRecommendations.List()
		p.FinalOutput = s.FinalOutput
		p.GardenImageURL = s.GardenImageURL
		p.PlantImages = s.PlantImages
		p.Path = res.Path
	}

	if runErr != nil {
		p.Status = workflow.StatusFailed
		msg := runErr.Error()
		p.Error = &msg
	}
	return p
}

// generatedURLs lists the blobs produced by a run.
func (p *Plan) generatedURLs() []string {
	var urls []string
	if p.GardenImageURL != "" {
		urls = append(urls, p.GardenImageURL)
	}
	for _, img := range p.PlantImages {
		if img.ImageURL != "" {
			urls = append(urls, img.ImageURL)
		}
	}
	return urls
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
