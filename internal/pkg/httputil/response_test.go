package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_UsesDetailEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "Campaign not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"detail":"Campaign not found"}`, rec.Body.String())
}

func TestInternalError_SurfacesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("insert event: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"insert event: connection refused"}`, rec.Body.String())
}

func TestGIF_SetsNoCacheHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	GIF(rec, []byte("GIF89a"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "GIF89a", rec.Body.String())
}
