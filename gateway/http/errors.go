package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/gateway"
)

// getOrGenerateRequestID extracts the request ID from headers or
// generates a new one.
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case stderrors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case stderrors.Is(err, errors.ErrReasoningTimeout), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, errors.ErrCapabilityUnsupported):
		return http.StatusNotImplemented
	case stderrors.Is(err, errors.ErrResourceExhausted):
		return http.StatusRequestEntityTooLarge
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeError returns a message safe for external clients. Details stay
// in the logs.
func sanitizeError(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "too many reasoning requests"
	case http.StatusGatewayTimeout:
		return "reasoning timed out"
	case http.StatusNotImplemented:
		return "operation not supported by the reasoning backend"
	case http.StatusRequestEntityTooLarge:
		return "knowledge base exceeds the reasoning limit"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, gateway.ErrorResponse{
		Error:     message,
		Status:    status,
		RequestID: w.Header().Get("X-Request-ID"),
	})
}
