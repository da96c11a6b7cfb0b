package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
)

const maxBodyBytes = 64 << 10

// generateRequestID generates a unique request ID for tracing
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if random generation fails
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(b)
}

// logStructured logs structured JSON with request metadata
// Includes: request_id, user_id, role, endpoint, status_code, duration
func logStructured(requestID, userID, role, method, endpoint string, statusCode int, duration time.Duration) {
	logEntry := map[string]interface{}{
		"request_id":  requestID,
		"user_id":     userID,
		"role":        role,
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	jsonBytes, err := json.Marshal(logEntry)
	if err != nil {
		log.Printf("[%s] Failed to marshal log entry: %v", requestID, err)
		return
	}

	log.Printf("%s", string(jsonBytes))
}

// writeJSON writes v as the JSON response body
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError writes the {success: false, message} envelope
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, domain.StatusResponse{Success: false, Message: message})
}

// decodeJSON decodes a bounded request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// isValidationError reports whether err was caused by bad caller input
func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidWeek) ||
		errors.Is(err, domain.ErrInvalidTrimester) ||
		errors.Is(err, domain.ErrInvalidSection) ||
		errors.Is(err, domain.ErrUnknownHealthService) ||
		errors.Is(err, domain.ErrUnknownSymptom)
}

// remoteRejectionStatus maps a 4xx answer of the entries API to the status returned to the browser
// Credential problems keep their status, anything else the remote refused is a bad request
func remoteRejectionStatus(err error) (int, bool) {
	var remote *domain.RemoteError
	if !errors.As(err, &remote) || !remote.ClientError() {
		return 0, false
	}
	switch remote.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return remote.StatusCode, true
	default:
		return http.StatusBadRequest, true
	}
}
