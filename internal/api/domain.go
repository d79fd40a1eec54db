package api

import (
	"fmt"

	"github.com/JaimeStill/citygarden/internal/plans"
	"github.com/JaimeStill/citygarden/internal/prompts"
	"github.com/JaimeStill/citygarden/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Workflow  *workflow.Workflow
	Plans     plans.System
	Retention *plans.Sweeper
	Prompts   *prompts.Handler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	wf, err := workflow.New(runtime.workflowRuntime(), &runtime.Workflow)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}

	plansSystem := plans.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Safety,
		wf,
		runtime.Logger,
		runtime.Pagination,
	)

	sweeper, err := plans.NewSweeper(&runtime.Retention, plansSystem, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}

	return &Domain{
		Workflow:  wf,
		Plans:     plansSystem,
		Retention: sweeper,
		Prompts:   prompts.NewHandler(runtime.Prompts, runtime.Logger),
	}, nil
}
