package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination carries the parsed page window for list endpoints.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Offset   int `json:"-"`
}

// ParsePagination reads page/page_size query parameters with defaults.
func ParsePagination(r *http.Request) *Pagination {
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	size := defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 {
		size = v
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return &Pagination{Page: page, PageSize: size, Offset: (page - 1) * size}
}

// DecodeJSON decodes a request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Page wraps rows with their pagination for list responses.
type Page struct {
	Rows       interface{} `json:"rows"`
	Pagination *Pagination `json:"pagination"`
}
