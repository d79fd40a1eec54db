package api

import (
	"net/http"

	"github.com/JaimeStill/citygarden/internal/config"
	"github.com/JaimeStill/citygarden/internal/plans"
	"github.com/JaimeStill/citygarden/pkg/openapi"
	"github.com/JaimeStill/citygarden/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) error {
	groups := domain.Plans.Handler(cfg.API.MaxBodySizeBytes()).Routes()
	groups = append(groups, domain.Prompts.Routes())

	doc, err := document(cfg)
	if err != nil {
		return err
	}
	groups = append(groups, routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/openapi.json", Handler: openapi.ServeSpec(doc)},
		},
	})

	routes.Register(mux, groups...)
	return nil
}

func document(cfg *config.Config) ([]byte, error) {
	spec := openapi.FromConfig(&cfg.API.OpenAPI, cfg.Version)
	spec.AddServer(cfg.API.BasePath)
	plans.Document(spec)
	return openapi.MarshalJSON(spec)
}
