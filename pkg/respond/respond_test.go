package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		data     any
		wantBody string
	}{
		{
			name:     "health payload",
			code:     http.StatusOK,
			data:     Fields{"success": true, "message": "TaskFlow API is running"},
			wantBody: `{"message":"TaskFlow API is running","success":true}`,
		},
		{
			name:     "struct keeps json tags",
			code:     http.StatusUnprocessableEntity,
			data:     FieldError{Field: "dueDate", Message: "Invalid due date"},
			wantBody: `{"field":"dueDate","message":"Invalid due date"}`,
		},
		{
			name:     "nil encodes as null",
			code:     http.StatusOK,
			data:     nil,
			wantBody: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/health", nil)

			JSON(w, r, tt.code, tt.data)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Success(w, r, http.StatusCreated, Fields{"deleted": 2})

	assert.Equal(t, http.StatusCreated, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, map[string]interface{}{"success": true, "deleted": float64(2)}, got)
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		message  string
		wantCode int
	}{
		{
			name:     "empty body",
			code:     http.StatusBadRequest,
			message:  "Request body is required.",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not found",
			code:     http.StatusNotFound,
			message:  "Task not found.",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "server error",
			code:     http.StatusInternalServerError,
			message:  "Server error.",
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			Error(w, r, tt.code, tt.message)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got map[string]interface{}
			err := json.NewDecoder(w.Body).Decode(&got)
			require.NoError(t, err)
			assert.Equal(t, false, got["success"])
			assert.Equal(t, tt.message, got["message"])
		})
	}
}

func TestValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	ValidationError(w, r, "Validation failed", []FieldError{{Field: "title", Message: "Title is required"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var got struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.False(t, got.Success)
	assert.Equal(t, "Validation failed", got.Message)
	assert.Equal(t, []FieldError{{Field: "title", Message: "Title is required"}}, got.Errors)
}
