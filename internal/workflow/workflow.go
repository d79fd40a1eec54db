package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/citygarden/pkg/graph"
)

// Stage names.
const (
	NodeCompliance  = "compliance"
	NodeAnalyze     = "analyze"
	NodeRecommend   = "recommend"
	NodeGardenImage = "garden_image"
	NodePlantImages = "plant_images"
)

// Status is the terminal status of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

// Result is the outcome of a pipeline run.
type Result struct {
	Status   Status
	State    State
	Path     []string
	Absorbed []*graph.NodeError
}

// Workflow is a compiled garden planning pipeline. It is safe for
// concurrent use; each Execute call owns its state.
type Workflow struct {
	plan   *graph.Plan[State]
	cfg    Config
	rt     *Runtime
	logger *slog.Logger
}

// New verifies that every prompt the stages render is available and
// compiles the pipeline graph. A missing prompt is a configuration error.
// Unset fields of cfg take their defaults; cfg itself is not modified.
func New(rt *Runtime, cfg *Config) (*Workflow, error) {
	settled := *cfg
	settled.loadDefaults()
	if err := settled.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg = &settled

	if err := rt.Prompts.Require(PromptKeys()...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPromptUnavailable, err)
	}

	logger := rt.Logger.With("system", "workflow")
	stageRT := *rt
	stageRT.Logger = logger

	plan, err := buildGraph(&stageRT, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	return &Workflow{
		plan:   plan,
		cfg:    *cfg,
		rt:     &stageRT,
		logger: logger,
	}, nil
}

// Policy returns the failure policy of a stage.
func (w *Workflow) Policy(node string) (graph.Policy, bool) {
	return w.plan.Policy(node)
}

// Execute runs the pipeline under the configured timeout. On failure it
// returns the partial result alongside the error so callers can record
// how far the run progressed.
func (w *Workflow) Execute(ctx context.Context, in Input) (*Result, error) {
	if len(in.Images) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", ErrInvalidInput)
	}

	if timeout := w.cfg.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if w.rt.Metrics != nil {
		w.rt.Metrics.RunStarted()
	}

	res, err := w.plan.Execute(ctx, NewState(in))
	result := &Result{
		State:    res.State,
		Path:     res.Path,
		Absorbed: res.Absorbed,
	}

	for _, absorbed := range res.Absorbed {
		w.logger.WarnContext(ctx, "stage failure absorbed", "node", absorbed.Node, "error", absorbed.Err)
	}

	switch {
	case err != nil:
		result.Status = StatusFailed
	case res.Outcome == graph.OutcomeRejected:
		result.Status = StatusRejected
	default:
		result.Status = StatusCompleted
	}

	if w.rt.Metrics != nil {
		w.rt.Metrics.RunFinished(string(result.Status))
	}

	w.logger.InfoContext(
		ctx, "workflow finished",
		"status", result.Status,
		"path", result.Path,
		"absorbed", len(result.Absorbed),
	)

	if err != nil {
		return result, fmt.Errorf("execute graph: %w", err)
	}
	return result, nil
}

func buildGraph(rt *Runtime, cfg *Config, logger *slog.Logger) (*graph.Plan[State], error) {
	gcfg := graph.DefaultConfig("citygarden-plan")
	gcfg.MaxSteps = cfg.MaxSteps
	gcfg.Hooks = observer(logger, rt.Metrics)

	g, err := graph.New[State](gcfg)
	if err != nil {
		return nil, err
	}

	if err := g.AddNode(NodeCompliance, ComplianceNode(rt), graph.Fatal); err != nil {
		return nil, err
	}

	if err := g.AddNode(NodeAnalyze, AnalysisNode(rt), graph.Fatal); err != nil {
		return nil, err
	}

	if err := g.AddNode(NodeRecommend, RecommendNode(rt), graph.Fatal); err != nil {
		return nil, err
	}

	if err := g.AddNode(NodeGardenImage, GardenImageNode(rt, cfg), graph.Absorb); err != nil {
		return nil, err
	}

	if err := g.AddNode(NodePlantImages, PlantImagesNode(rt, cfg), graph.Absorb); err != nil {
		return nil, err
	}

	// compliance → analyze (approved) | rejected
	if err := g.AddBranch(NodeCompliance, complianceGate, NodeAnalyze); err != nil {
		return nil, err
	}

	if err := g.AddEdge(NodeAnalyze, NodeRecommend); err != nil {
		return nil, err
	}

	if err := g.AddEdge(NodeRecommend, NodeGardenImage); err != nil {
		return nil, err
	}

	if err := g.AddEdge(NodeGardenImage, NodePlantImages); err != nil {
		return nil, err
	}

	if err := g.SetEntryPoint(NodeCompliance); err != nil {
		return nil, err
	}

	if err := g.SetExitPoint(NodePlantImages); err != nil {
		return nil, err
	}

	return g.Compile()
}

func complianceGate(s State) graph.Route {
	if s.ComplianceCheck.Approved() {
		return graph.Goto(NodeAnalyze)
	}
	return graph.Halt(graph.OutcomeRejected)
}
