package prompts

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/citygarden/pkg/handlers"
	"github.com/JaimeStill/citygarden/pkg/routes"
)

// Handler exposes the loaded templates read-only.
type Handler struct {
	catalog *Catalog
	logger  *slog.Logger
}

// NewHandler creates a Handler over catalog.
func NewHandler(catalog *Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		logger:  logger.With("handler", "prompts"),
	}
}

// Routes returns the route group definition for prompt endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/prompts",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{template}/{variant}", Handler: h.Find},
		},
	}
}

// List returns every loaded template variant.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.catalog.Entries())
}

// Find returns one template variant.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	key := Key{Template: r.PathValue("template"), Variant: r.PathValue("variant")}

	v, err := h.catalog.lookup(key)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, Entry{
		Template: key.Template,
		Variant:  key.Variant,
		Origin:   v.origin,
		Text:     v.text,
	})
}
