package shared

import (
	"errors"
	"net/http"

	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

// RespondPage sends a paginated success envelope.
func RespondPage(w http.ResponseWriter, data any, filters ListFilters, total int) {
	totalPages := 0
	if filters.Limit > 0 {
		totalPages = (total + filters.Limit - 1) / filters.Limit
	}
	httpx.OKPage(w, data, httpx.Pagination{
		Page: filters.Page, Limit: filters.Limit, Total: total, TotalPages: totalPages,
	})
}

// RespondError maps masterdata errors to status codes.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		httpx.Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidID):
		httpx.Fail(w, http.StatusBadRequest, err.Error(), nil)
	default:
		httpx.RespondError(w, err)
	}
}
