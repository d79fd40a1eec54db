package plans

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/graph"
)

type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func sampleRequest() CreateRequest {
	return CreateRequest{
		ImageURLs:       []string{"https://photos.test/a.jpg"},
		UserPreferences: UserPreferences{GrowType: "flowers", CycleType: "annual", WinterType: "tender"},
		Location:        Location{Latitude: ptr(40.7), Longitude: ptr(-74.0), Address: "New York"},
	}
}

func completedResult() *workflow.Result {
	s := workflow.NewState(workflow.Input{Images: [][]byte{[]byte("a")}})
	s.ComplianceCheck = workflow.VerdictPass
	s.SunExposure = "Full sun"
	s.MicroClimate = "Sheltered"
	s.HardscapeElements = "Brick wall"
	s.PlantInventory = workflow.NewGarden
	s.EnvironmentFactors = "Urban heat"
	s.WindPattern = "Light"
	s.PlantRecommendations = workflow.Recommendations{
		Status: workflow.RecommendationsParsed,
		Plants: []workflow.Plant{{ID: "1", Name: "Lavender"}, {ID: "2", Name: "Thyme"}},
	}
	s.FinalOutput = "report"
	s.GardenImageURL = "https://blob.test/images/garden.png"
	s.PlantImages = []workflow.PlantImage{
		{Name: "Lavender", ImageURL: "https://blob.test/images/lavender.png"},
		{Name: "Thyme", Error: "generation failed"},
	}

	return &workflow.Result{
		Status: workflow.StatusCompleted,
		State:  s,
		Path:   []string{"compliance", "analyze", "recommend", "garden_image", "plant_images"},
	}
}

func TestFromResultCompleted(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	p := fromResult(id, sampleRequest(), completedResult(), nil)

	if p.Status != workflow.StatusCompleted || p.Error != nil {
		t.Fatalf("status = %s, error = %v", p.Status, p.Error)
	}
	want := Analysis{
		ComplianceCheck:    "Pass",
		SunExposure:        "Full sun",
		MicroClimate:       "Sheltered",
		HardscapeElements:  "Brick wall",
		PlantInventory:     workflow.NewGarden,
		EnvironmentFactors: "Urban heat",
		WindPattern:        "Light",
	}
	if diff := cmp.Diff(want, p.Analysis); diff != "" {
		t.Errorf("Analysis mismatch (-want +got):\n%s", diff)
	}
	if p.StylePreferences != "preferred grow type: flowers, preferred cycle type: annual, preferred winter type: tender" {
		t.Errorf("StylePreferences = %q", p.StylePreferences)
	}

	urls := p.generatedURLs()
	wantURLs := []string{"https://blob.test/images/garden.png", "https://blob.test/images/lavender.png"}
	if diff := cmp.Diff(wantURLs, urls); diff != "" {
		t.Errorf("generatedURLs mismatch (-want +got):\n%s", diff)
	}

	resp := p.Response()
	if resp.ID != id || len(resp.PlantRecommendations) != 2 || len(resp.PlantImages) != 2 {
		t.Errorf("Response() = %+v", resp)
	}
}

func TestFromResultFailures(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	runErr := &graph.NodeError{Node: "analyze", Err: errors.New("upstream down")}

	partial := &workflow.Result{
		Status: workflow.StatusFailed,
		State:  workflow.NewState(workflow.Input{}),
		Path:   []string{"compliance", "analyze"},
	}
	partial.State.ComplianceCheck = workflow.VerdictPass

	tests := []struct {
		name     string
		res      *workflow.Result
		wantPath []string
	}{
		{"partial state", partial, []string{"compliance", "analyze"}},
		{"no state", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fromResult(id, sampleRequest(), tt.res, runErr)
			if p.Status != workflow.StatusFailed {
				t.Errorf("Status = %s, want failed", p.Status)
			}
			if p.Error == nil || *p.Error != runErr.Error() {
				t.Errorf("Error = %v, want %q", p.Error, runErr.Error())
			}
			if diff := cmp.Diff(tt.wantPath, p.Path); diff != "" {
				t.Errorf("Path mismatch (-want +got):\n%s", diff)
			}
			resp := p.Response()
			if resp.PlantRecommendations == nil || resp.PlantImages == nil {
				t.Errorf("Response() lists must not be nil: %+v", resp)
			}
		})
	}
}

func TestInsertArgsScanRoundTrip(t *testing.T) {
	p := fromResult(uuid.Must(uuid.NewV7()), sampleRequest(), completedResult(), nil)

	args, err := insertArgs(&p)
	if err != nil {
		t.Fatalf("insertArgs() error = %v", err)
	}
	if len(args) != 14 {
		t.Fatalf("len(args) = %d, want 14", len(args))
	}

	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		p.ID,
		p.Status,
		p.Location,
		p.Latitude,
		p.Longitude,
		p.StylePreferences,
		[]byte(args[6].(string)),
		[]byte(args[7].(string)),
		[]byte(args[8].(string)),
		p.FinalOutput,
		p.GardenImageURL,
		[]byte(args[11].(string)),
		[]byte(args[12].(string)),
		(*string)(nil),
		created,
	}}

	got, err := scanPlan(row)
	if err != nil {
		t.Fatalf("scanPlan() error = %v", err)
	}

	p.CreatedAt = created
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestScanPlanRejectsCorruptJSON(t *testing.T) {
	row := fakeRow{values: []any{
		uuid.New(), workflow.StatusCompleted, "", 0.0, 0.0, "",
		[]byte(`[]`), []byte(`{`), []byte(`[]`), "", "", []byte(`[]`), []byte(`[]`),
		(*string)(nil), time.Now(),
	}}
	if _, err := scanPlan(row); err == nil {
		t.Fatal("scanPlan() = nil error, want decode failure")
	}
}

type fakePurger struct {
	before time.Time
	n      int
	err    error
}

func (f *fakePurger) Purge(_ context.Context, before time.Time) (int, error) {
	f.before = before
	return f.n, f.err
}

func ptr[T any](v T) *T { return &v }
