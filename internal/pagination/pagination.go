package pagination

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Params holds normalized list-query parameters.
type Params struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// Offset returns the SQL offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FromRequest extracts page/limit/search/sort from query parameters. SortBy
// is checked against the sortable whitelist; unknown fields fall back to the
// default so user input never reaches the ORDER BY clause directly.
func FromRequest(r *http.Request, sortable []string, defaultSort string) Params {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = defaultPage
	}

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	sortBy := q.Get("sortBy")
	allowed := false
	for _, f := range sortable {
		if f == sortBy {
			allowed = true
			break
		}
	}
	if !allowed {
		sortBy = defaultSort
	}

	sortOrder := strings.ToLower(q.Get("sortOrder"))
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	return Params{
		Page:      page,
		Limit:     limit,
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

// Meta describes one page of a paginated response.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewMeta computes pagination metadata for a total row count.
func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1 && total > 0,
	}
}

// BuildSearchClause returns an ILIKE disjunction over the given columns and
// its single pattern argument, using placeholder $argOffset+1 for every
// column. Empty search yields an empty clause.
func BuildSearchClause(search string, columns []string, argOffset int) (string, []interface{}) {
	if search == "" || len(columns) == 0 {
		return "", nil
	}
	placeholder := fmt.Sprintf("$%d", argOffset+1)
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s ILIKE %s", col, placeholder))
	}
	return "(" + strings.Join(parts, " OR ") + ")", []interface{}{"%" + search + "%"}
}
