//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_SessionLifecycle(t *testing.T) {
	env := setupHTTPServer(t)

	t.Run("data routes need a token", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, env.Server.URL+"/conf/getTcpList", "", nil)
		defer resp.Body.Close() //nolint:errcheck
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, env.Server.URL+"/auth/login", "",
			map[string]string{"user_name": testUser, "password": "nope"})
		defer resp.Body.Close() //nolint:errcheck
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Invalid credentials", body["error"])
	})

	token := login(t, env)

	t.Run("token opens data routes", func(t *testing.T) {
		code, e := call(t, env, token, http.MethodGet, "/conf/getTcpList", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "SUCCESS", e.Status)
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, env.Server.URL+"/auth/logout", token, nil)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doRequest(t, http.MethodGet, env.Server.URL+"/conf/getTcpList", token, nil)
		defer resp.Body.Close() //nolint:errcheck
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestAuth_ForgedTokens(t *testing.T) {
	env := setupHTTPServer(t)

	sign := func(method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong signature", sign(jwt.SigningMethodHS256, "other-secret", jwt.MapClaims{"sid": "x", "exp": future})},
		{"wrong algorithm", sign(jwt.SigningMethodHS384, testSecret, jwt.MapClaims{"sid": "x", "exp": future})},
		{"unknown session", sign(jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sid": "no-such-session", "exp": future})},
		{"expired", sign(jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sid": "x", "exp": time.Now().Add(-time.Minute).Unix()})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodGet, env.Server.URL+"/conf/getTcpList", tc.token, nil)
			defer resp.Body.Close() //nolint:errcheck
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestOps_HealthAndSpec(t *testing.T) {
	env := setupHTTPServer(t)

	resp := doRequest(t, http.MethodGet, env.Server.URL+"/healthz", "", nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, env.Server.URL+"/openapi.json", "", nil)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Contains(t, doc["paths"], "/upload/uploadData")
}
