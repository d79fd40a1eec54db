// Package graph provides a typed workflow graph: stages are nodes over a
// single state value, transitions are unconditional edges or tagged branches,
// and a compiled Plan executes the graph sequentially with a per-node failure policy.
package graph

import (
	"context"
	"fmt"
	"time"
)

const defaultMaxSteps = 100

// Node transforms the workflow state. A node must return a new state value
// and must not retain a reference to the state after returning.
type Node[S any] func(ctx context.Context, state S) (S, error)

// Policy decides what the engine does with a node error.
type Policy int

const (
	// Fatal aborts execution and returns the partial state with the error.
	Fatal Policy = iota
	// Absorb restores the state from before the node, records the failure,
	// and continues with the next transition.
	Absorb
)

func (p Policy) String() string {
	switch p {
	case Fatal:
		return "fatal"
	case Absorb:
		return "absorb"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Hooks observe node execution. OnNodeStart may return a derived context
// that is passed to the node and to OnNodeEnd.
type Hooks struct {
	OnNodeStart func(ctx context.Context, node string) context.Context
	OnNodeEnd   func(ctx context.Context, node string, elapsed time.Duration, err error)
}

// Config holds graph identity and execution limits.
type Config struct {
	Name     string
	MaxSteps int
	Hooks    Hooks
}

// DefaultConfig returns a Config with the default step limit.
func DefaultConfig(name string) Config {
	return Config{
		Name:     name,
		MaxSteps: defaultMaxSteps,
	}
}

type node[S any] struct {
	name   string
	run    Node[S]
	policy Policy
}

type transition[S any] struct {
	to      string
	router  Router[S]
	targets []string
}

// Graph declares nodes and transitions. It is not safe for concurrent
// mutation; build it once and Compile it into a Plan.
type Graph[S any] struct {
	cfg         Config
	nodes       map[string]*node[S]
	order       []string
	transitions map[string]transition[S]
	entry       string
	exit        string
}

// New creates an empty Graph.
func New[S any](cfg Config) (*Graph[S], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidGraph)
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}

	return &Graph[S]{
		cfg:         cfg,
		nodes:       make(map[string]*node[S]),
		transitions: make(map[string]transition[S]),
	}, nil
}

// AddNode registers a named node with its failure policy.
func (g *Graph[S]) AddNode(name string, run Node[S], policy Policy) error {
	if name == "" {
		return fmt.Errorf("%w: node name required", ErrInvalidGraph)
	}
	if run == nil {
		return fmt.Errorf("%w: node %s has no function", ErrInvalidGraph, name)
	}
	if _, ok := g.nodes[name]; ok {
		return fmt.Errorf("%w: duplicate node %s", ErrInvalidGraph, name)
	}

	g.nodes[name] = &node[S]{name: name, run: run, policy: policy}
	g.order = append(g.order, name)
	return nil
}

// AddEdge declares an unconditional transition from one node to another.
func (g *Graph[S]) AddEdge(from, to string) error {
	if err := g.claim(from); err != nil {
		return err
	}
	g.transitions[from] = transition[S]{to: to}
	return nil
}

// AddBranch declares a routed transition. The router may Goto only one of
// the declared targets, or Halt with an outcome.
func (g *Graph[S]) AddBranch(from string, router Router[S], targets ...string) error {
	if router == nil {
		return fmt.Errorf("%w: branch from %s has no router", ErrInvalidGraph, from)
	}
	if err := g.claim(from); err != nil {
		return err
	}
	g.transitions[from] = transition[S]{router: router, targets: targets}
	return nil
}

// SetEntryPoint names the first node to execute.
func (g *Graph[S]) SetEntryPoint(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("%w: unknown entry point %s", ErrInvalidGraph, name)
	}
	g.entry = name
	return nil
}

// SetExitPoint names the node whose completion ends execution.
func (g *Graph[S]) SetExitPoint(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("%w: unknown exit point %s", ErrInvalidGraph, name)
	}
	g.exit = name
	return nil
}

// Compile validates the graph and returns an immutable execution Plan.
func (g *Graph[S]) Compile() (*Plan[S], error) {
	if g.entry == "" {
		return nil, fmt.Errorf("%w: entry point not set", ErrInvalidGraph)
	}
	if g.exit == "" {
		return nil, fmt.Errorf("%w: exit point not set", ErrInvalidGraph)
	}
	if _, ok := g.transitions[g.exit]; ok {
		return nil, fmt.Errorf("%w: exit point %s has an outgoing transition", ErrInvalidGraph, g.exit)
	}

	for _, name := range g.order {
		if name == g.exit {
			continue
		}
		t, ok := g.transitions[name]
		if !ok {
			return nil, fmt.Errorf("%w: node %s has no outgoing transition", ErrInvalidGraph, name)
		}
		for _, target := range t.destinations() {
			if _, ok := g.nodes[target]; !ok {
				return nil, fmt.Errorf("%w: %s transitions to unknown node %s", ErrInvalidGraph, name, target)
			}
		}
	}

	for from := range g.transitions {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: transition from unknown node %s", ErrInvalidGraph, from)
		}
	}

	if unreachable := g.unreachable(); len(unreachable) > 0 {
		return nil, fmt.Errorf("%w: unreachable nodes %v", ErrInvalidGraph, unreachable)
	}

	nodes := make(map[string]*node[S], len(g.nodes))
	for k, v := range g.nodes {
		nodes[k] = v
	}
	transitions := make(map[string]transition[S], len(g.transitions))
	for k, v := range g.transitions {
		transitions[k] = v
	}

	return &Plan[S]{
		name:        g.cfg.Name,
		maxSteps:    g.cfg.MaxSteps,
		hooks:       g.cfg.Hooks,
		nodes:       nodes,
		transitions: transitions,
		entry:       g.entry,
		exit:        g.exit,
	}, nil
}

func (g *Graph[S]) claim(from string) error {
	if from == "" {
		return fmt.Errorf("%w: transition source required", ErrInvalidGraph)
	}
	if _, ok := g.transitions[from]; ok {
		return fmt.Errorf("%w: node %s already has an outgoing transition", ErrInvalidGraph, from)
	}
	return nil
}

func (g *Graph[S]) unreachable() []string {
	seen := map[string]bool{g.entry: true}
	queue := []string{g.entry}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		t, ok := g.transitions[current]
		if !ok {
			continue
		}
		for _, next := range t.destinations() {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	var missing []string
	for _, name := range g.order {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func (t transition[S]) destinations() []string {
	if t.router != nil {
		return t.targets
	}
	return []string{t.to}
}
