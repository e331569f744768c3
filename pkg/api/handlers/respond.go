package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

// writePlain writes a plain-text response with the exact body, no trailing
// newline. The relay's wire contract is byte-exact on these strings.
func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// decodeStrict unmarshals the full request body into v. Unlike a streaming
// decode it rejects trailing garbage after the first JSON value.
func decodeStrict(r *http.Request, v interface{}) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
