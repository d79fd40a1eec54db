package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/citygarden/internal/climate"
	"github.com/JaimeStill/citygarden/internal/prompts"
	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/ai"
)

const (
	analysisResponse = `{
		"sun_exposure": "full sun from the south",
		"micro_climate": "sheltered by the adjacent wall",
		"hardscape_elements": "concrete floor and metal railing",
		"plant_inventory": "two empty planters",
		"environmental_factors": "urban heat island",
		"wind_pattern": ["north", "gusty"]
	}`

	recommendResponse = "```json\n" + `{
		"plant_recommendations": [
			{"id": 0, "name": "Basil", "description": "Fragrant annual herb", "care_tips": "Water daily"},
			{"id": "1", "name": "Cherry Tomato", "description": "Compact fruiting vine"},
			{"id": 2, "name": "Mint", "description": "Vigorous perennial"}
		]
	}` + "\n```"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChat answers each stage by recognizing its system prompt.
type fakeChat struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	requests  map[string]ai.Request
	calls     []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		responses: map[string]string{
			workflow.NodeCompliance: "Pass",
			workflow.NodeAnalyze:    analysisResponse,
			workflow.NodeRecommend:  recommendResponse,
		},
		errs:     map[string]error{},
		requests: map[string]ai.Request{},
	}
}

func stageOf(system string) string {
	switch {
	case strings.Contains(system, "compliance inspector"):
		return workflow.NodeCompliance
	case strings.Contains(system, "geography expert"):
		return workflow.NodeAnalyze
	case strings.Contains(system, "botany expert"):
		return workflow.NodeRecommend
	default:
		return "unknown"
	}
}

func (f *fakeChat) Complete(ctx context.Context, req ai.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stage := stageOf(req.System)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, stage)
	f.requests[stage] = req

	if err := f.errs[stage]; err != nil {
		return "", err
	}
	return f.responses[stage], nil
}

func (f *fakeChat) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeImages generates images named after the prompt. Plants listed in
// failOn fail; delays stagger completion order.
type fakeImages struct {
	mu        sync.Mutex
	editErr   error
	failOn    map[string]bool
	delays    map[string]time.Duration
	edits     int
	generated int
	lastEdit  string
	refs      int
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) ([]byte, error) {
	for name, d := range f.delays {
		if strings.Contains(prompt, name) {
			time.Sleep(d)
		}
	}

	f.mu.Lock()
	f.generated++
	f.mu.Unlock()

	for name := range f.failOn {
		if strings.Contains(prompt, name) {
			return nil, ai.Upstream("images.generate", errors.New("content policy violation"))
		}
	}
	return []byte("png:" + prompt), nil
}

func (f *fakeImages) Edit(ctx context.Context, prompt string, images [][]byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	f.lastEdit = prompt
	f.refs = len(images)

	if f.editErr != nil {
		return nil, f.editErr
	}
	return []byte("png:garden"), nil
}

type upload struct {
	Container   string
	Name        string
	ContentType string
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads []upload
	err     error
}

func (f *fakeStorage) Upload(ctx context.Context, container, name string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, upload{Container: container, Name: name, ContentType: contentType})
	return "https://blob.test/" + container + "/" + name, nil
}

type fakeClimate struct {
	summary *climate.Summary
	err     error
}

func (f *fakeClimate) Summary(ctx context.Context, latitude, longitude float64) (*climate.Summary, error) {
	return f.summary, f.err
}

type missingPrompts struct{}

func (missingPrompts) Render(key prompts.Key, data any) (string, error) {
	return "", prompts.ErrTemplateNotFound
}

func (missingPrompts) Require(keys ...prompts.Key) error {
	return prompts.ErrTemplateNotFound
}

type harness struct {
	chat    *fakeChat
	images  *fakeImages
	storage *fakeStorage
	rt      *workflow.Runtime
	cfg     *workflow.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	catalog, err := prompts.Load(nil, discard())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cfg := &workflow.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}

	h := &harness{
		chat:    newFakeChat(),
		images:  &fakeImages{},
		storage: &fakeStorage{},
		cfg:     cfg,
	}
	h.rt = &workflow.Runtime{
		Chat:    h.chat,
		Images:  h.images,
		Storage: h.storage,
		Prompts: catalog,
		Logger:  discard(),
	}
	return h
}

func (h *harness) workflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	w, err := workflow.New(h.rt, h.cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return w
}

func testInput() workflow.Input {
	return workflow.Input{
		Images:           [][]byte{[]byte("photo-1"), []byte("photo-2")},
		Latitude:         52.52,
		Longitude:        13.405,
		StylePreferences: "preferred grow type: edible herbs, preferred cycle type: annual, preferred winter type: indoor",
		Location:         "Berlin",
	}
}
