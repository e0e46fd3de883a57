package shared

import (
	"net/http"
	"strconv"
)

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	// Entity specific filters
	CategoryID *int64
	LowStock   bool
}

// FiltersFromQuery reads the common filters off a request.
func FiltersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	f := ListFilters{
		Page:    DefaultPage,
		Limit:   DefaultLimit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if q.Get("isActive") != "" {
		active := q.Get("isActive") == "true"
		f.IsActive = &active
	}
	if v, err := strconv.ParseInt(q.Get("categoryId"), 10, 64); err == nil && v > 0 {
		f.CategoryID = &v
	}
	if q.Get("lowStock") == "true" {
		f.LowStock = true
	}
	return f
}

// Offset returns the row offset for the current page.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
