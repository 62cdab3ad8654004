package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sat-practice/backend/internal/parser"
	"github.com/sat-practice/backend/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"api error", NewNotFoundError("test", "t1"), http.StatusNotFound, `"code":"NOT_FOUND"`},
		{"wrapped api error", fmt.Errorf("outer: %w", NewConflictError("busy")), http.StatusConflict, `"code":"CONFLICT"`},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, `"code":"HTTP_ERROR"`},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, `"details":"boom"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestNewParseError(t *testing.T) {
	_, err := parser.NewRegistry().Parse("prose", "")
	apiErr := newParseError(err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "UNKNOWN_FORMAT", apiErr.Code)

	_, err = parser.NewRegistry().Parse("\xff", "")
	assert.Equal(t, "INVALID_ENCODING", newParseError(err).Code)

	assert.Equal(t, http.StatusInternalServerError, newParseError(errors.New("io")).Status)
}

func TestStoreError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, storeError("test", "x", fmt.Errorf("t: %w", store.ErrNotFound)).Status)
	assert.Equal(t, http.StatusInternalServerError, storeError("test", "x", errors.New("db")).Status)
}
