package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors for the domain layer. Services wrap these so handlers can
// map any failure to a status code without knowing the concrete cause.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusCoder lets typed domain errors choose their own HTTP status.
type StatusCoder interface {
	error
	HTTPStatus() int
}

// DataCarrier lets typed domain errors attach structured detail to the
// failure envelope (e.g. available vs requested quantity).
type DataCarrier interface {
	ErrorData() any
}

// RespondError maps a domain error to an envelope response.
func RespondError(w http.ResponseWriter, err error) {
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		Fail(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		var data any
		var carrier DataCarrier
		if errors.As(err, &carrier) {
			data = carrier.ErrorData()
		}
		Fail(w, coder.HTTPStatus(), coder.Error(), data)
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrConflict):
		Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, err.Error(), nil)
	default:
		Fail(w, http.StatusInternalServerError, "internal error", nil)
	}
}
