package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination extracts page and per-page parameters from query values.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	return
}

// Offset converts a 1-based page into a row offset.
func Offset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	return (page - 1) * perPage
}

// ClampPerPage bounds perPage to [1, limit].
func ClampPerPage(perPage, limit int) int {
	if perPage < 1 {
		return 1
	}
	if limit > 0 && perPage > limit {
		return limit
	}
	return perPage
}

// SetTotalCount writes the X-Total-Count header.
func SetTotalCount(w http.ResponseWriter, total int64) {
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
}
