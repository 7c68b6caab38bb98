package httpx

import (
	"context"
	"net/http"

	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/results"
	"github.com/target/hydrosim/internal/service"
)

// ResultHandlers serves stored simulation results.
type ResultHandlers struct {
	Sims *SimulationHandlers
}

// Get handles GET /api/results/{id}?result_type=&query=.
func (h *ResultHandlers) Get(w http.ResponseWriter, r *http.Request) {
	q := service.ResultQuery{
		Type:       model.ResultType(r.URL.Query().Get("result_type")),
		Expression: r.URL.Query().Get("query"),
	}
	h.Sims.respond(w, r, http.StatusOK, func(ctx context.Context, owner, id string) (any, error) {
		return h.Sims.Svc.Results(ctx, owner, id, q)
	})
}

// Summary handles GET /api/results/{id}/summary.
func (h *ResultHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	h.Sims.respond(w, r, http.StatusOK, func(ctx context.Context, owner, id string) (any, error) {
		return h.Sims.Svc.Summary(ctx, owner, id)
	})
}

// Export handles GET /api/results/{id}/export/{format} as a file download.
func (h *ResultHandlers) Export(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	format, err := results.ParseExportFormat(r.PathValue("format"))
	if err != nil {
		WriteServiceError(w, r, h.Sims.Logger, err)
		return
	}

	id := r.PathValue("id")
	body, err := h.Sims.Svc.Export(r.Context(), owner, id, format)
	if err != nil {
		WriteServiceError(w, r, h.Sims.Logger, err)
		return
	}

	WriteAttachment(w, format.ContentType(), format.Filename(id), body)
}
