package graph

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidGraph indicates a graph construction or validation failure.
	ErrInvalidGraph = errors.New("invalid graph")
	// ErrInvalidRoute indicates a router chose a node it did not declare.
	ErrInvalidRoute = errors.New("invalid route")
	// ErrMaxSteps indicates execution exceeded the configured step limit.
	ErrMaxSteps = errors.New("max steps exceeded")
)

// NodeError records the node at which execution failed.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Cancelled reports whether the failure was caused by context cancellation
// or deadline expiry.
func (e *NodeError) Cancelled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}
