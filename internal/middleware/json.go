package middleware

import (
	"encoding/json"
	"net/http"

	"tenant-auth-core/internal/model"
)

// writeJSONError writes the standard error envelope. Middleware rejects
// requests before handlers run, so it cannot reuse the handler helpers.
func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope(code, message))
}

func errorEnvelope(code string, message string) model.APIResponse {
	return model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	}
}
