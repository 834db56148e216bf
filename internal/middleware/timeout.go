package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"med-connect/internal/model"
)

const defaultRequestTimeout = 15 * time.Second

var timeoutBody = func() string {
	raw, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: "REQUEST_TIMEOUT", Message: "request timed out"},
	})
	return string(raw)
}()

// Timeout buffers the handler response; it must not wrap websocket upgrades.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
