package plans

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/JaimeStill/citygarden/pkg/query"
	"github.com/JaimeStill/citygarden/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "plans", "p").
	Project("id", "id").
	Project("status", "status").
	Project("location", "location").
	Project("latitude", "latitude").
	Project("longitude", "longitude").
	Project("style_preferences", "style_preferences").
	Project("image_urls", "image_urls").
	Project("analysis", "analysis").
	Project("plant_recommendations", "plant_recommendations").
	Project("final_output", "final_output").
	Project("garden_image_url", "garden_image_url").
	Project("plant_images", "plant_images").
	Project("path", "path").
	Project("error", "error").
	Project("created_at", "created_at")

var defaultSort = query.SortField{
	Field:      "created_at",
	Descending: true,
}

// Filters contains optional filtering criteria for plan queries. Nil fields
// are ignored.
type Filters struct {
	Status        *string    `json:"status,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("status", f.Status).
		WhereBefore("created_at", f.CreatedBefore).
		WhereAfter("created_at", f.CreatedAfter)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Timestamps use RFC 3339.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"created_before", &f.CreatedBefore},
		{"created_after", &f.CreatedAfter},
	} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filters{}, fmt.Errorf("%w: %s: %w", ErrInvalidRequest, p.name, err)
		}
		*p.dst = &t
	}

	return f, nil
}

// insertArgs returns the column values for an INSERT in projection order,
// excluding created_at. JSONB columns are passed as encoded text.
func insertArgs(p *Plan) ([]any, error) {
	jsonCols := []any{p.ImageURLs, p.Analysis, p.PlantRecommendations, p.PlantImages, p.Path}
	encoded := make([]string, len(jsonCols))
	for i, v := range jsonCols {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode plan column: %w", err)
		}
		encoded[i] = string(b)
	}

	return []any{
		p.ID,
		string(p.Status),
		p.Location,
		p.Latitude,
		p.Longitude,
		p.StylePreferences,
		encoded[0],
		encoded[1],
		encoded[2],
		p.FinalOutput,
		p.GardenImageURL,
		encoded[3],
		encoded[4],
		p.Error,
	}, nil
}

func scanPlan(s repository.Scanner) (Plan, error) {
	var (
		p                                              Plan
		imageURLs, analysis, plants, plantImages, path []byte
	)

	err := s.Scan(
		&p.ID,
		&p.Status,
		&p.Location,
		&p.Latitude,
		&p.Longitude,
		&p.StylePreferences,
		&imageURLs,
		&analysis,
		&plants,
		&p.FinalOutput,
		&p.GardenImageURL,
		&plantImages,
		&path,
		&p.Error,
		&p.CreatedAt,
	)
	if err != nil {
		return Plan{}, err
	}

	cols := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"image_urls", imageURLs, &p.ImageURLs},
		{"analysis", analysis, &p.Analysis},
		{"plant_recommendations", plants, &p.PlantRecommendations},
		{"plant_images", plantImages, &p.PlantImages},
		{"path", path, &p.Path},
	}
	for _, c := range cols {
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.dst); err != nil {
			return Plan{}, fmt.Errorf("decode %s: %w", c.name, err)
		}
	}

	return p, nil
}

// scanGenerated reads the blob columns returned by a purge.
func scanGenerated(s repository.Scanner) (Plan, error) {
	var (
		p           Plan
		plantImages []byte
	)
	if err := s.Scan(&p.ID, &p.GardenImageURL, &plantImages); err != nil {
		return Plan{}, err
	}
	if len(plantImages) > 0 {
		if err := json.Unmarshal(plantImages, &p.PlantImages); err != nil {
			return Plan{}, fmt.Errorf("decode plant_images: %w", err)
		}
	}
	return p, nil
}
