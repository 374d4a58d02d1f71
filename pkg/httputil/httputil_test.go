package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/apierrors"
)

func TestParsePaginationDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/diagrams", nil)
	p := ParsePagination(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset)
}

func TestParsePaginationComputesOffset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/diagrams?page=3&page_size=10", nil)
	p := ParsePagination(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 20, p.Offset)
}

func TestParsePaginationCapsPageSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/diagrams?page_size=5000", nil)
	p := ParsePagination(req)

	assert.Equal(t, 100, p.PageSize)
}

func TestParsePaginationIgnoresGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/diagrams?page=-1&page_size=abc", nil)
	p := ParsePagination(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/diagrams",
		strings.NewReader(`{"title":"x","bogus":true}`))

	var dst struct {
		Title string `json:"title"`
	}
	err := DecodeJSON(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request body")
}

func TestWriteOKEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteOK(rec, "Diagram created", map[string]string{"id": "d-1"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`{"status":"ok","message":"Diagram created","data":{"id":"d-1"}}`,
		rec.Body.String())
}

func TestWriteOKDefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteOK(rec, "", nil))
	assert.Contains(t, rec.Body.String(), `"message":"Success"`)
}

func TestWriteCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteCreated(rec, "Registration successful", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWriteAPIErrorSerializesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, apierrors.NotFound("Diagram not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t,
		`{"status":"error","error_code":"RESOURCE_NOT_FOUND","message":"Diagram not found"}`,
		rec.Body.String())
}

func TestWriteAPIErrorMasksInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, apierrors.Internal("db exploded", errors.New("pq: relation missing")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
}

func TestWriteAPIErrorWrapsPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
