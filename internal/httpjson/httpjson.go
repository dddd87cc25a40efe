// Package httpjson holds the JSON response helpers shared by the HTTP
// handlers.
package httpjson

import (
	"encoding/json"
	"net/http"
)

// Write writes v as a JSON response with the given status code.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, message string, status int) {
	Write(w, status, map[string]string{"error": message})
}
