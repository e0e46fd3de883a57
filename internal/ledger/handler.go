package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
	"github.com/tradewind-erp/tradewind/internal/shared"
)

// Handler serves ledger reads.
type Handler struct {
	svc *Service
}

// NewHandler constructs Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the handler under the inventory router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/movements", h.listMovements)
	r.Get("/movements/summary", h.summarize)
	r.Get("/products/{id}/movements", h.productHistory)
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	var f Filter
	if v, err := strconv.ParseInt(q.Get("productId"), 10, 64); err == nil {
		f.ProductID = v
	}
	if v, err := strconv.ParseInt(q.Get("locationId"), 10, 64); err == nil {
		f.LocationID = v
	}
	f.Type = MovementType(q.Get("type"))
	f.Reason = MovementReason(q.Get("reason"))
	if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		f.From = t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		f.To = t
	}
	return f
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	f.Page, f.Limit = shared.PageParams(r, 20, 100)

	entries, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := shared.NewPagination(f.Page, f.Limit, total)
	httpx.OKPage(w, entries, httpx.Pagination{
		Page: page.Page, Limit: page.PerPage, Total: page.Total, TotalPages: page.TotalPages,
	})
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	by := GroupBy(r.URL.Query().Get("groupBy"))
	switch by {
	case GroupByType, GroupByReason, GroupByProduct, GroupByLocation, GroupByDay:
	case "":
		by = GroupByType
	default:
		httpx.Fail(w, http.StatusBadRequest, "invalid groupBy", nil)
		return
	}

	rows, err := h.svc.Summarize(r.Context(), filterFromQuery(r), by)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, rows)
}

func (h *Handler) productHistory(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid product id", nil)
		return
	}

	entries, err := h.svc.ListForProduct(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, entries)
}
