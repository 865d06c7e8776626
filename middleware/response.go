package middleware

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the JSON envelope written by every middleware rejection.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// WriteError writes an ERROR envelope with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Status:  "ERROR",
		Message: message,
	})
}
