package stock

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradewind-erp/tradewind/internal/auth"
	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

// Handler exposes the movement endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(svc *Service, validate *validator.Validate) *Handler {
	return &Handler{svc: svc, validate: validate}
}

// Routes mounts the handler under the inventory router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/movements", h.postMovement)
	r.Post("/transfer", h.postTransfer)
	r.Get("/products/{id}/levels", h.getLevels)
}

func (h *Handler) postMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	entry, err := h.svc.PostMovement(r.Context(), req.toInput(principal.UserID))
	if err != nil {
		respondStockError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, entry)
}

func (h *Handler) postTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	entry, err := h.svc.Transfer(r.Context(), TransferInput{
		ProductID:      req.ProductID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Quantity:       req.Quantity,
		PerformedBy:    principal.UserID,
		Notes:          req.Notes,
	})
	if err != nil {
		respondStockError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, entry)
}

func (h *Handler) getLevels(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid product id", nil)
		return
	}

	levels, err := h.svc.Levels(r.Context(), productID)
	if err != nil {
		respondStockError(w, err)
		return
	}
	out := make([]LevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, LevelResponse{LocationID: l.LocationID, Quantity: l.Quantity})
	}
	httpx.OK(w, http.StatusOK, out)
}

func respondStockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrLocationNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidLocationPair),
		errors.Is(err, ErrUnknownMovementType), errors.Is(err, ErrAmbiguousAdjustment),
		errors.Is(err, ErrLocationRequired), errors.Is(err, ErrLocationNotAllowed),
		errors.Is(err, ErrTransferViaMovement):
		httpx.Fail(w, http.StatusBadRequest, err.Error(), nil)
	default:
		httpx.RespondError(w, err)
	}
}
