//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"med-connect/internal/app"
	"med-connect/internal/config"
	"med-connect/internal/database"
	"med-connect/internal/repository"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func openDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.New(ctx, database.Options{URL: url, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))
	t.Cleanup(db.Close)
	return db
}

func newServer(t *testing.T, revocationMode string) (*httptest.Server, repository.Set) {
	t.Helper()

	db := openDB(t)
	repos := repository.NewPostgresSet(db.Pool)

	cfg := &config.Config{
		RequestTimeout:       10 * time.Second,
		TokenSecret:          "integration-secret-0123456789abcdef",
		TokenIssuer:          "med-connect-integration",
		CORSOrigins:          []string{"*"},
		StoreDriver:          config.StoreDriverPostgres,
		RevocationMode:       revocationMode,
		MaxReportSize:        10 * 1024 * 1024,
		TokenCleanupInterval: time.Minute,
	}

	components, err := app.Build(cfg, repos)
	require.NoError(t, err)

	server := httptest.NewServer(components.Handler)
	t.Cleanup(server.Close)
	return server, repos
}

// uniqueID keeps rows from separate runs against the same database apart.
func uniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func postJSON(t *testing.T, url string, body any, bearer string) (int, envelope) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return doRequest(t, req)
}

func getJSON(t *testing.T, url string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return doRequest(t, req)
}

func doRequest(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}
