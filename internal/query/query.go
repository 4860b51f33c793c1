// Package query implements the generic pagination, sorting and filtering
// engine shared by every list endpoint. Callers declare per-resource
// allow-lists; anything outside them is silently dropped or substituted,
// never an error.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Pagination carries clamped page parameters.
type Pagination struct {
	Page    int
	PerPage int
}

// Meta describes one page of a listed collection.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ParsePagination clamps raw page parameters: page is floored at 1, per_page
// is capped at maxPerPage and falls back to defaultPerPage when missing or
// below 1.
func ParsePagination(rawPage, rawPerPage string, defaultPerPage, maxPerPage int) Pagination {
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = 1
	}

	perPage, err := strconv.Atoi(rawPerPage)
	if err != nil {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}

	return Pagination{Page: page, PerPage: perPage}
}

// ParseSort validates sort parameters against the caller's allow-list.
// Unknown fields silently fall back to the list's first entry and unknown
// orders to descending; no error is returned.
func ParseSort(rawSortBy, rawSortOrder string, allowedFields []string) (sortBy, sortOrder string) {
	sortBy = rawSortBy
	if sortBy == "" || !contains(allowedFields, sortBy) {
		if len(allowedFields) > 0 {
			sortBy = allowedFields[0]
		} else {
			sortBy = "id"
		}
	}

	sortOrder = strings.ToLower(rawSortOrder)
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return sortBy, sortOrder
}

// ParseFilters extracts only the allow-listed keys from raw query params.
// Interpretation of the values is left to each resource's service.
func ParseFilters(values url.Values, allowedFilters []string) map[string]string {
	filters := make(map[string]string)
	for _, name := range allowedFilters {
		if values.Has(name) {
			filters[name] = values.Get(name)
		}
	}
	return filters
}

// ApplySort orders a query by a previously validated field. A secondary
// tie-break on the primary key keeps page boundaries deterministic when the
// sort key has duplicates. The tie-break reuses sortBy's table qualifier so
// joined queries stay unambiguous.
func ApplySort(db *gorm.DB, sortBy, sortOrder string) *gorm.DB {
	tieBreak := "id"
	if i := strings.LastIndex(sortBy, "."); i >= 0 {
		tieBreak = sortBy[:i+1] + "id"
	}
	return db.Order(fmt.Sprintf("%s %s", sortBy, strings.ToUpper(sortOrder))).Order(tieBreak + " ASC")
}

// Paginate runs the count query, applies limit/offset and scans the page
// into dest. The query must already carry a deterministic sort.
func Paginate(db *gorm.DB, p Pagination, dest interface{}) (*Meta, error) {
	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (p.Page - 1) * p.PerPage
	if err := db.Limit(p.PerPage).Offset(offset).Find(dest).Error; err != nil {
		return nil, err
	}

	return NewMeta(p, total), nil
}

// PaginateDistinct is Paginate for queries whose joins can fan out rows.
// The count runs over DISTINCT countColumn; counting DISTINCT on a star
// select is not valid SQL, so the page query applies its own DISTINCT over
// selectColumns instead.
func PaginateDistinct(db *gorm.DB, p Pagination, countColumn, selectColumns string, dest interface{}) (*Meta, error) {
	var total int64
	if err := db.Session(&gorm.Session{}).Distinct(countColumn).Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (p.Page - 1) * p.PerPage
	if err := db.Distinct(selectColumns).Limit(p.PerPage).Offset(offset).Find(dest).Error; err != nil {
		return nil, err
	}

	return NewMeta(p, total), nil
}

// NewMeta computes pagination metadata without touching the store. Used where
// the caller already knows the total.
func NewMeta(p Pagination, total int64) *Meta {
	totalPages := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	return &Meta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

func contains(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
