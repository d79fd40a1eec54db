package api

import (
	"github.com/JaimeStill/citygarden/internal/config"
	"github.com/JaimeStill/citygarden/internal/infrastructure"
	"github.com/JaimeStill/citygarden/internal/plans"
	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Workflow   workflow.Config
	Retention  plans.RetentionConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
		Workflow:       cfg.Workflow,
		Retention:      cfg.Retention,
	}
}

// workflowRuntime adapts the API runtime to the dependencies the pipeline
// stages require.
func (r *Runtime) workflowRuntime() *workflow.Runtime {
	rt := &workflow.Runtime{
		Chat:    r.Chat,
		Images:  r.Images,
		Storage: r.Storage,
		Prompts: r.Prompts,
		Metrics: r.Metrics,
		Logger:  r.Logger,
	}
	if r.Climate != nil {
		rt.Climate = r.Climate
	}
	return rt
}
