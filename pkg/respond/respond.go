// Package respond writes the JSON envelope shared by every endpoint:
// {"success": bool, ...}. Failures carry "message" and, for validation
// failures, a per-field "errors" list.
package respond

import (
	"encoding/json"
	"net/http"
)

type Fields map[string]any

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// Success writes fields with success=true.
func Success(w http.ResponseWriter, r *http.Request, code int, fields Fields) {
	body := make(Fields, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	JSON(w, r, code, body)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, Fields{"success": false, "message": message})
}

func ValidationError(w http.ResponseWriter, r *http.Request, message string, errs []FieldError) {
	if errs == nil {
		errs = []FieldError{}
	}
	JSON(w, r, http.StatusBadRequest, Fields{"success": false, "message": message, "errors": errs})
}
