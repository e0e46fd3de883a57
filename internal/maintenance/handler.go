package maintenance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

// Handler serves the maintenance endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the maintenance routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/verify-counters", h.verifyCounters)
}

func (h *Handler) verifyCounters(w http.ResponseWriter, r *http.Request) {
	repair := r.URL.Query().Get("repair") == "true"
	report, err := h.service.VerifyCounters(r.Context(), repair)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, report)
}
