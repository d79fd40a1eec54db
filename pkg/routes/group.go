package routes

import (
	"net/http"

	"github.com/JaimeStill/citygarden/pkg/middleware"
)

// Group organizes routes under a common prefix. Middleware applies to the
// group's routes and to every child group, outermost first.
type Group struct {
	Prefix     string
	Middleware []middleware.Func
	Routes     []Route
	Children   []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		register(mux, "", nil, g)
	}
}

func register(mux *http.ServeMux, prefix string, inherited []middleware.Func, g Group) {
	prefix += g.Prefix
	chain := append(append([]middleware.Func{}, inherited...), g.Middleware...)

	for _, r := range g.Routes {
		mux.Handle(r.pattern(prefix), middleware.Chain(r.Handler, chain...))
	}
	for _, child := range g.Children {
		register(mux, prefix, chain, child)
	}
}
