package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, "Test successful", map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Test successful", resp["message"])
	assert.Equal(t, map[string]any{"key": "value"}, resp["data"])
	assert.NotContains(t, resp, "error")
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		err       error
		hints     []string
		wantError string
	}{
		{name: "without_error", status: http.StatusBadRequest},
		{name: "with_error", status: http.StatusUnprocessableEntity, err: errors.New("boom"), wantError: "boom"},
		{name: "with_hints", status: http.StatusUnprocessableEntity, err: errors.New("missing"), hints: []string{"set merchantId"}, wantError: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			Error(w, tt.status, "Test error", tt.err, tt.hints...)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, tt.hints, resp.Hints)
		})
	}
}

func BenchmarkSuccessResponse(b *testing.B) {
	data := map[string]string{"test": "data"}
	for i := 0; i < b.N; i++ {
		Success(httptest.NewRecorder(), http.StatusOK, "ok", data)
	}
}
