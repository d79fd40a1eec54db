package plans_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/citygarden/internal/plans"
	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/graph"
	"github.com/JaimeStill/citygarden/pkg/pagination"
	"github.com/JaimeStill/citygarden/pkg/routes"
)

type mockSystem struct {
	listFn   func(ctx context.Context, page pagination.PageRequest, filters plans.Filters) (*pagination.PageResult[plans.Plan], error)
	findFn   func(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
	createFn func(ctx context.Context, req plans.CreateRequest) (*plans.Plan, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockSystem) Handler(maxBodySize int64) *plans.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters plans.Filters) (*pagination.PageResult[plans.Plan], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*plans.Plan, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, req plans.CreateRequest) (*plans.Plan, error) {
	return m.createFn(ctx, req)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Purge(context.Context, time.Time) (int, error) {
	return 0, nil
}

func newTestHandler(sys plans.System) *plans.Handler {
	return plans.NewHandler(sys, discard(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}, 1<<20)
}

func setupMux(h *plans.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes()...)
	return mux
}

var sampleID = uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")

func samplePlan(status workflow.Status) *plans.Plan {
	return &plans.Plan{
		ID:             sampleID,
		Status:         status,
		Location:       "Berlin",
		GardenImageURL: "https://blob.test/images/garden.png",
		PlantRecommendations: []workflow.Plant{
			{ID: "1", Name: "Lavender", Description: "Fragrant shrub"},
		},
		PlantImages: []workflow.PlantImage{
			{Name: "Lavender", ImageURL: "https://blob.test/images/lavender.png"},
		},
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func requestBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func TestHandlerCreate(t *testing.T) {
	for _, path := range []string{"/plans", "/garden_plan"} {
		t.Run(path, func(t *testing.T) {
			var got plans.CreateRequest
			sys := &mockSystem{
				createFn: func(_ context.Context, req plans.CreateRequest) (*plans.Plan, error) {
					got = req
					return samplePlan(workflow.StatusCompleted), nil
				},
			}

			body := `{
				"image_urls": ["https://photos.test/a.jpg"],
				"user_preferences": {"growType": "vegetables", "subType": "herbs", "cycleType": "annual", "winterType": "hardy"},
				"location": {"latitude": 52.52, "longitude": 13.405, "address": "Berlin"}
			}`
			req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
			rec := httptest.NewRecorder()
			setupMux(newTestHandler(sys)).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
			}
			if got.UserPreferences.SubType != "herbs" || *got.Location.Latitude != 52.52 {
				t.Errorf("decoded request = %+v", got)
			}

			var resp map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			for _, key := range []string{"id", "status", "garden_image_url", "plant_recommendations", "plant_images"} {
				if _, ok := resp[key]; !ok {
					t.Errorf("response missing %q", key)
				}
			}
			if _, ok := resp["final_output"]; ok {
				t.Error("response includes final_output")
			}
		})
	}
}

func TestHandlerCreateRejected(t *testing.T) {
	sys := &mockSystem{
		createFn: func(context.Context, plans.CreateRequest) (*plans.Plan, error) {
			p := samplePlan(workflow.StatusRejected)
			p.GardenImageURL = ""
			p.PlantRecommendations = nil
			p.PlantImages = nil
			return p, nil
		},
	}

	req := httptest.NewRequest("POST", "/plans", requestBody(t, validRequest()))
	rec := httptest.NewRecorder()
	setupMux(newTestHandler(sys)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp plans.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != workflow.StatusRejected {
		t.Errorf("status = %s, want rejected", resp.Status)
	}
	if resp.PlantRecommendations == nil || len(resp.PlantRecommendations) != 0 {
		t.Errorf("plant_recommendations = %v, want empty list", resp.PlantRecommendations)
	}
}

func TestHandlerCreateErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"image_urls": [`, nil, http.StatusBadRequest},
		{"unknown field", `{"images": []}`, nil, http.StatusBadRequest},
		{"invalid request", `{}`, fmt.Errorf("%w: no images", plans.ErrInvalidRequest), http.StatusBadRequest},
		{"pipeline failure", `{}`, fmt.Errorf("plan x: %w", &graph.NodeError{Node: "recommend", Err: workflow.ErrRecommendFailed}), http.StatusBadGateway},
		{"pipeline timeout", `{}`, &graph.NodeError{Node: "analyze", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				createFn: func(context.Context, plans.CreateRequest) (*plans.Plan, error) {
					return nil, tt.err
				},
			}

			req := httptest.NewRequest("POST", "/plans", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			setupMux(newTestHandler(sys)).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHandlerList(t *testing.T) {
	var (
		gotPage    pagination.PageRequest
		gotFilters plans.Filters
	)
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, filters plans.Filters) (*pagination.PageResult[plans.Plan], error) {
			gotPage, gotFilters = page, filters
			result := pagination.NewPageResult([]plans.Plan{*samplePlan(workflow.StatusCompleted)}, 1, page)
			return &result, nil
		},
	}

	req := httptest.NewRequest("GET", "/plans?page=2&page_size=500&status=completed&search=berl&sort=-created_at", nil)
	rec := httptest.NewRecorder()
	setupMux(newTestHandler(sys)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotPage.Page != 2 || gotPage.PageSize != 100 {
		t.Errorf("page = %+v, want page 2 clamped to 100", gotPage)
	}
	if gotPage.Search == nil || *gotPage.Search != "berl" {
		t.Errorf("search = %v, want berl", gotPage.Search)
	}
	if gotFilters.Status == nil || *gotFilters.Status != "completed" {
		t.Errorf("status filter = %v", gotFilters.Status)
	}

	req = httptest.NewRequest("GET", "/plans?created_before=tomorrow", nil)
	rec = httptest.NewRecorder()
	setupMux(newTestHandler(sys)).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d, want 400", rec.Code)
	}
}

func TestHandlerFind(t *testing.T) {
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*plans.Plan, error) {
			if id == sampleID {
				return samplePlan(workflow.StatusCompleted), nil
			}
			return nil, plans.ErrNotFound
		},
	}
	mux := setupMux(newTestHandler(sys))

	tests := []struct {
		path   string
		status int
	}{
		{"/plans/" + sampleID.String(), http.StatusOK},
		{"/plans/" + uuid.NewString(), http.StatusNotFound},
		{"/plans/not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.status)
		}
	}
}

func TestHandlerDelete(t *testing.T) {
	var deleted []uuid.UUID
	sys := &mockSystem{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			if id != sampleID {
				return plans.ErrNotFound
			}
			deleted = append(deleted, id)
			return nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/plans/"+sampleID.String(), nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if len(deleted) != 1 {
		t.Errorf("deleted = %v, want one call", deleted)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/plans/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing plan status = %d, want 404", rec.Code)
	}
}
