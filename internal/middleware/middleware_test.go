package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func echoToken(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := AccessTokenFromContext(r.Context())
		require.True(t, ok)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Header().Set("X-Token", token)
		_, _ = w.Write(body)
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	t.Run("header wins over body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`{"access_token":"from-body"}`))
		req.Header.Set("Authorization", "Bearer from-header")
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		BearerToken(echoToken(t)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "from-header", rec.Header().Get("X-Token"))
	})

	t.Run("body token is used and body is restored", func(t *testing.T) {
		payload := `{"access_token":"from-body","patient_id":"p1"}`
		req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		BearerToken(echoToken(t)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "from-body", rec.Header().Get("X-Token"))
		require.Equal(t, payload, rec.Body.String())
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`{"patient_id":"p1"}`)),
			httptest.NewRequest(http.MethodGet, "/records", nil),
			httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`not json`)),
		} {
			req.Header.Set("Authorization", "Basic abc")
			rec := httptest.NewRecorder()

			BearerToken(echoToken(t)).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)

			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.False(t, body.Success)
			require.Equal(t, "UNAUTHORIZED", body.Error.Code)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
}

func TestLoggingSetsRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "req-123", seen)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "REQUEST_TIMEOUT")
}
