//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cm-admin/internal/app"
	"cm-admin/internal/config"
	"cm-admin/internal/db/dbtest"
)

const (
	testUser     = "admin"
	testPassword = "integration-secret"
	testSecret   = "integration-jwt-secret"
)

type httpTestEnv struct {
	Server *httptest.Server
	App    *app.App
}

// setupHTTPServer wires the full application over a fresh, migrated
// database and serves it on a loopback listener.
func setupHTTPServer(t *testing.T) *httpTestEnv {
	t.Helper()
	pool := dbtest.NewPool(t)

	cfg := &config.Config{
		Env:            "development",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Auth: config.AuthConfig{
			Username:   testUser,
			Password:   testPassword,
			JWTSecret:  testSecret,
			SessionTTL: time.Hour,
		},
		ETL: config.ETLConfig{
			SerializeUploads: true,
			MaxUploadBytes:   8 << 20,
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := app.New(ctx, app.Deps{
		Cfg:    cfg,
		Pool:   pool,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	require.NoError(t, a.Services.Dispatcher.CheckConsistency(ctx))
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler)
	t.Cleanup(srv.Close)
	return &httpTestEnv{Server: srv, App: a}
}

// login returns a session token for the configured credentials.
func login(t *testing.T, env *httpTestEnv) string {
	t.Helper()
	resp := doRequest(t, http.MethodPost, env.Server.URL+"/auth/login", "",
		map[string]string{"user_name": testUser, "password": testPassword})
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func doRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Status     string            `json:"status"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	VersionIDs map[string]*int64 `json:"versionIds"`
}

// call performs an authenticated request and decodes the envelope.
func call(t *testing.T, env *httpTestEnv, token, method, path string, body any) (int, envelope) {
	t.Helper()
	resp := doRequest(t, method, env.Server.URL+path, token, body)
	defer resp.Body.Close() //nolint:errcheck
	var e envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return resp.StatusCode, e
}

func decodeData[T any](t *testing.T, e envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(e.Data, &out))
	return out
}
