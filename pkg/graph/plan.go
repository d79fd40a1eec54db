package graph

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Cloner is implemented by state types that hold reference fields. The
// engine clones such states before an absorbable node so a failed node
// cannot leak partial writes.
type Cloner[S any] interface {
	Clone() S
}

// Result is the outcome of an execution.
type Result[S any] struct {
	State    S
	Outcome  Outcome
	Path     []string
	Absorbed []*NodeError
}

// Plan is a compiled, immutable graph. A Plan may be executed concurrently
// with independent states.
type Plan[S any] struct {
	name        string
	maxSteps    int
	hooks       Hooks
	nodes       map[string]*node[S]
	transitions map[string]transition[S]
	entry       string
	exit        string
}

// Name returns the graph name.
func (p *Plan[S]) Name() string {
	return p.name
}

// Policy returns the failure policy of the named node.
func (p *Plan[S]) Policy(name string) (Policy, bool) {
	n, ok := p.nodes[name]
	if !ok {
		return Fatal, false
	}
	return n.policy, true
}

// Execute runs the plan against initial. On a fatal error it returns the
// last settled state alongside a *NodeError. Context cancellation is fatal
// regardless of node policy.
func (p *Plan[S]) Execute(ctx context.Context, initial S) (Result[S], error) {
	res := Result[S]{State: initial}
	current := p.entry

	for step := 0; ; step++ {
		if step >= p.maxSteps {
			return res, &NodeError{Node: current, Err: ErrMaxSteps}
		}
		if err := ctx.Err(); err != nil {
			return res, &NodeError{Node: current, Err: err}
		}

		n := p.nodes[current]
		settled := snapshot(res.State)

		next, err := p.run(ctx, n, res.State)
		res.Path = append(res.Path, current)

		if err != nil {
			if n.policy == Fatal || ctx.Err() != nil {
				res.State = settled
				return res, &NodeError{Node: current, Err: err}
			}
			res.State = settled
			res.Absorbed = append(res.Absorbed, &NodeError{Node: current, Err: err})
		} else {
			res.State = next
		}

		if current == p.exit {
			res.Outcome = OutcomeCompleted
			return res, nil
		}

		t := p.transitions[current]
		if t.router == nil {
			current = t.to
			continue
		}

		route := t.router(res.State)
		target, ok := route.Next()
		if !ok {
			if route.Outcome() == "" {
				return res, &NodeError{
					Node: current,
					Err:  fmt.Errorf("%w: empty route", ErrInvalidRoute),
				}
			}
			res.Outcome = route.Outcome()
			return res, nil
		}
		if !slices.Contains(t.targets, target) {
			return res, &NodeError{
				Node: current,
				Err:  fmt.Errorf("%w: %s", ErrInvalidRoute, target),
			}
		}
		current = target
	}
}

func (p *Plan[S]) run(ctx context.Context, n *node[S], state S) (S, error) {
	if p.hooks.OnNodeStart != nil {
		ctx = p.hooks.OnNodeStart(ctx, n.name)
	}

	start := time.Now()
	next, err := n.run(ctx, state)

	if p.hooks.OnNodeEnd != nil {
		p.hooks.OnNodeEnd(ctx, n.name, time.Since(start), err)
	}
	return next, err
}

func snapshot[S any](state S) S {
	if c, ok := any(state).(Cloner[S]); ok {
		return c.Clone()
	}
	return state
}
