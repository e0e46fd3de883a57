package customers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/masterdata/shared"
	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

type customerRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	ContactName  string          `json:"contactName" validate:"max=128"`
	Email        string          `json:"email" validate:"omitempty,email"`
	Phone        string          `json:"phone" validate:"max=32"`
	Address      string          `json:"address"`
	Group        string          `json:"group" validate:"omitempty,oneof=regular vip wholesale retail"`
	PaymentTerms string          `json:"paymentTerms" validate:"omitempty,oneof=cash net_7 net_15 net_30"`
	CreditLimit  decimal.Decimal `json:"creditLimit"`
	IsActive     *bool           `json:"isActive"`
}

func (r customerRequest) toCustomer() Customer {
	s := Customer{
		Name:         r.Name,
		ContactName:  r.ContactName,
		Email:        r.Email,
		Phone:        r.Phone,
		Address:      r.Address,
		Group:        r.Group,
		PaymentTerms: r.PaymentTerms,
		CreditLimit:  r.CreditLimit,
		IsActive:     true,
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
	return s
}

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromQuery(r)
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondPage(w, items, filters, total)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid customer id", nil)
		return
	}
	s, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, s)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	s, err := h.service.Create(r.Context(), req.toCustomer())
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, s)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid customer id", nil)
		return
	}
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	s, err := h.service.Update(r.Context(), id, req.toCustomer())
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, s)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid customer id", nil)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		shared.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, http.StatusOK, "customer deactivated", nil)
}
