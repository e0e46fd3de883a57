package sales

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradewind-erp/tradewind/internal/auth"
	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
	"github.com/tradewind-erp/tradewind/internal/shared"
	"github.com/tradewind-erp/tradewind/internal/stock"
)

// Handler exposes the sales invoice endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(svc *Service, validate *validator.Validate) *Handler {
	return &Handler{svc: svc, validate: validate}
}

// Routes mounts the handler.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}/status", h.updateStatus)
	r.Patch("/{id}/payment", h.updatePayment)
}

func invoiceID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Status:        Status(q.Get("status")),
		PaymentStatus: PaymentStatus(q.Get("paymentStatus")),
		Search:        q.Get("search"),
	}
	if v, err := strconv.ParseInt(q.Get("customerId"), 10, 64); err == nil {
		f.CustomerID = v
	}
	if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		f.From = t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		f.To = t
	}
	f.Page, f.Limit = shared.PageParams(r, 20, 100)

	invoices, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	page := shared.NewPagination(f.Page, f.Limit, total)
	httpx.OKPage(w, invoices, httpx.Pagination{
		Page: page.Page, Limit: page.PerPage, Total: page.Total, TotalPages: page.TotalPages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := invoiceID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	inv, lines, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, InvoiceResponse{Invoice: inv, Lines: lines})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	inv, err := h.svc.Create(r.Context(), req.toInput(principal.UserID))
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, inv)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := invoiceID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	inv, err := h.svc.Update(r.Context(), id, req.toInput(principal.UserID), principal.UserID)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := invoiceID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	inv, err := h.svc.UpdateStatus(r.Context(), id, Status(req.Status), principal.UserID)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv)
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := invoiceID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	inv, err := h.svc.UpdatePayment(r.Context(), id, PaymentStatus(req.Status), req.PaidAmount, principal.UserID)
	if err != nil {
		respondSalesError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv)
}

func respondSalesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, stock.ErrProductNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotEditable):
		httpx.Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrEmptyLines), errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrInvalidTerms), errors.Is(err, stock.ErrLocationRequired),
		errors.Is(err, shared.ErrValidationFailed):
		httpx.Fail(w, http.StatusBadRequest, err.Error(), nil)
	default:
		httpx.RespondError(w, err)
	}
}
