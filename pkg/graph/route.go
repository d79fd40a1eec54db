package graph

// Outcome is the terminal status of a successful execution.
type Outcome string

const (
	// OutcomeCompleted means execution reached the exit point.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRejected means a branch halted execution before the exit point.
	OutcomeRejected Outcome = "rejected"
)

// Route is the tagged decision returned by a Router: either continue at a
// named node or halt with an outcome.
type Route struct {
	next    string
	outcome Outcome
}

// Router inspects the settled state after a node and picks the next step.
type Router[S any] func(state S) Route

// Goto continues execution at the named node.
func Goto(node string) Route {
	return Route{next: node}
}

// Halt ends execution with the given outcome.
func Halt(outcome Outcome) Route {
	if outcome == "" {
		outcome = OutcomeCompleted
	}
	return Route{outcome: outcome}
}

// Next returns the node to continue at, if the route continues.
func (r Route) Next() (string, bool) {
	return r.next, r.next != ""
}

// Outcome returns the halt outcome. It is empty for continuing routes.
func (r Route) Outcome() Outcome {
	return r.outcome
}
