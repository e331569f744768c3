// Package utils holds small HTTP response helpers shared by the API's JSON
// endpoints. The plain-text mutation responses are written directly by the
// handlers; these helpers cover the JSON reads and ops endpoints.
package utils

import (
	"encoding/json"
	"net/http"
)

// JSONWrite encodes v as the response body with the given status.
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// JSONError writes an {"error": message} body with the given status.
func JSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
