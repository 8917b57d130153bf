package web

import (
	"encoding/json"
	"net/http"

	"oldb/pkg/logger"
)

// JSONDecodeErrorMessage is the fixed body returned whenever a request body
// fails to parse as JSON.
const JSONDecodeErrorMessage = "JSON decode error: the parameters provided were not valid JSON."

// Errors maps field names to validation messages.
type Errors map[string]string

func (e Errors) Error() string {
	for field, msg := range e {
		return field + ": " + msg
	}
	return "validation failed"
}

func ReadJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteErrors writes {"errors": {...}} with field-level messages.
func WriteErrors(w http.ResponseWriter, status int, errs Errors) {
	WriteJSON(w, status, map[string]Errors{"errors": errs})
}
