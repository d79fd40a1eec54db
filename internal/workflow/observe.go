package workflow

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/citygarden/pkg/graph"
	"github.com/JaimeStill/citygarden/pkg/telemetry"
)

// observer attaches logging, spans, and metrics to each stage.
func observer(logger *slog.Logger, metrics *telemetry.Metrics) graph.Hooks {
	return graph.Hooks{
		OnNodeStart: func(ctx context.Context, node string) context.Context {
			ctx, _ = telemetry.StartSpan(ctx, "workflow."+node,
				attribute.String("workflow.node", node),
			)
			logger.DebugContext(ctx, "stage started", "node", node)
			return ctx
		},
		OnNodeEnd: func(ctx context.Context, node string, elapsed time.Duration, err error) {
			telemetry.End(trace.SpanFromContext(ctx), err)
			if metrics != nil {
				metrics.ObserveNode(node, elapsed, err != nil)
			}

			if err != nil {
				logger.WarnContext(ctx, "stage failed", "node", node, "duration", elapsed, "error", err)
				return
			}
			logger.InfoContext(ctx, "stage finished", "node", node, "duration", elapsed)
		},
	}
}
