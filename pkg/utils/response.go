package utils

import (
	"net/http"

	"github.com/goccy/go-json"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteValidationError reports every failed check of a write at once.
func WriteValidationError(w http.ResponseWriter, messages []string) {
	WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":    "validation failed",
		"messages": messages,
	})
}
