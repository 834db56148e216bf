package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const accessTokenContextKey contextKey = "access_token"

// maxSniffBytes bounds how much of a JSON body is buffered while looking for access_token.
const maxSniffBytes = 1 << 20

type tokenBody struct {
	AccessToken string `json:"access_token"`
}

// BearerToken extracts the access token from the Authorization header or, failing that, from the
// access_token field of a JSON body. The body is restored for the handler. Verification is left to
// the access guard; requests without any token are rejected here with 401.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, source := tokenFromHeader(r)
		if token == "" {
			var err error
			token, err = tokenFromBody(r)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", "request body could not be read")
				return
			}
			source = "body"
		}

		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
			return
		}

		slog.Debug("access token presented", "source", source, "path", r.URL.Path)
		ctx := context.WithValue(r.Context(), accessTokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessTokenFromContext returns the raw token placed by BearerToken.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenContextKey).(string)
	return token, ok && token != ""
}

func tokenFromHeader(r *http.Request) (string, string) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", ""
	}
	return strings.TrimSpace(header[7:]), "header"
}

func tokenFromBody(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return "", nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSniffBytes+1))
	if err != nil {
		return "", err
	}
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), rest), rest}

	if len(raw) > maxSniffBytes {
		return "", nil
	}

	var body tokenBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil
	}
	return strings.TrimSpace(body.AccessToken), nil
}
