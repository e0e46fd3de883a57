package purchasing

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

// Handler exposes the purchase order endpoints.
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
	r.Post("/{id}/receive", h.receive)
	r.Patch("/{id}/payment", h.updatePayment)
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Status: Status(q.Get("status")),
		Search: q.Get("search"),
	}
	if v, err := strconv.ParseInt(q.Get("supplierId"), 10, 64); err == nil {
		f.SupplierID = v
	}
	if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		f.From = t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		f.To = t
	}
	f.Page, f.Limit = shared.PageParams(r, 20, 100)

	orders, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		respondPurchasingError(w, err)
		return
	}
	page := shared.NewPagination(f.Page, f.Limit, total)
	httpx.OKPage(w, orders, httpx.Pagination{
		Page: page.Page, Limit: page.PerPage, Total: page.Total, TotalPages: page.TotalPages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id", nil)
		return
	}
	po, lines, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondPurchasingError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, OrderResponse{PurchaseOrder: po, Lines: lines})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	po, err := h.svc.Create(r.Context(), req.toInput(principal.UserID))
	if err != nil {
		respondPurchasingError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, po)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id", nil)
		return
	}
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := auth.PrincipalFromContext(r.Context())
	po, err := h.svc.Update(r.Context(), id, req.toInput(principal.UserID), principal.UserID)
	if err != nil {
		respondPurchasingError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, po)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id", nil)
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
	po, err := h.svc.UpdateStatus(r.Context(), id, Status(req.Status), principal.UserID)
	if err != nil {
		respondPurchasingError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, po)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id", nil)
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipts := make([]ReceiveLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		receipts = append(receipts, ReceiveLine{LineID: l.LineID, Quantity: l.Quantity, LocationID: l.LocationID})
	}
	principal := auth.PrincipalFromContext(r.Context())
	po, err := h.svc.Receive(r.Context(), id, receipts, r.Header.Get("Idempotency-Key"), principal.UserID)
	if err != nil {
		respondPurchasingError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, po)
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id", nil)
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
	po, err := h.svc.UpdatePayment(r.Context(), id, PaymentStatus(req.Status), req.PaidAmount, principal.UserID)
	if err != nil {
		respondPurchasingError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, po)
}

func respondPurchasingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotEditable),
		errors.Is(err, ErrNotReceivable), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrEmptyLines), errors.Is(err, ErrOverReceive),
		errors.Is(err, ErrUnknownLine), errors.Is(err, ErrInvalidPayment),
		errors.Is(err, stock.ErrLocationRequired),
		errors.Is(err, shared.ErrValidationFailed):
		httpx.Fail(w, http.StatusBadRequest, err.Error(), nil)
	default:
		httpx.RespondError(w, err)
	}
}
