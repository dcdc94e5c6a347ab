package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves the handful of routes the CLI uses.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"token":"tok-`+body["user_name"]+`"}`)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"message":"Logged out"}`)
	})
	mux.HandleFunc("POST /upload/getDataLoadersConf", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-admin" {
			writeEnvelope(w, http.StatusUnauthorized, "ERROR", nil, "unauthorized")
			return
		}
		writeEnvelope(w, http.StatusOK, "SUCCESS", []Dataset{
			{ID: 1, Name: "tele2_coverage", DonorName: "Tele2", StagingTable: "tele2_coverage_temp",
				Versions: []Version{{ID: 12, Name: "feb ( 2024-02-29 )"}, {ID: 11, Name: "jan ( 2024-01-31 )"}}},
			{ID: 2, Name: "tele2_updated", StagingTable: "tele2_updated_temp"},
		}, "")
	})
	mux.HandleFunc("POST /upload/uploadFile", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeEnvelope(w, http.StatusOK, "FAIL", nil, "DB Error")
			return
		}
		writeEnvelope(w, http.StatusOK, "SUCCESS",
			map[string]any{"id": 13, "versionName": r.FormValue("versionName") + " ( 2024-03-31 )", "rows": 3},
			"Successfully uploaded 3 rows")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// runCLI executes the command tree with an isolated HOME and environment.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"CMADMIN_HOST", "CMADMIN_TOKEN", "CMADMIN_OUTPUT", "CMADMIN_PASSWORD"} {
		t.Setenv(k, "")
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoginThenDatasets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := fakeAPI(t)

	out, err := runCLI(t, "secret\n", "login", "--host", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in to "+srv.URL+" as admin")

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	p := cfg.ActiveProfile("")
	assert.Equal(t, "tok-admin", p.Token)
	assert.Equal(t, srv.URL, p.Host)

	// Host and token now come from the saved profile.
	out, err = runCLI(t, "", "datasets")
	require.NoError(t, err)
	assert.Contains(t, out, "tele2_coverage_temp")
	assert.Contains(t, out, "feb ( 2024-02-29 )")

	out, err = runCLI(t, "", "versions", "tele2_coverage", "-o", "json")
	require.NoError(t, err)
	var versions []Version
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	assert.Equal(t, []Version{{ID: 12, Name: "feb ( 2024-02-29 )"}, {ID: 11, Name: "jan ( 2024-01-31 )"}}, versions)

	out, err = runCLI(t, "", "versions", "tele2_updated", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = runCLI(t, "", "logout")
	require.NoError(t, err)
	cfg, err = LoadUserConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.ActiveProfile("").Token)
}

func TestLogin_BadPassword(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := fakeAPI(t)

	_, err := runCLI(t, "", "login", "--host", srv.URL, "--password", "nope")
	require.ErrorContains(t, err, "Invalid credentials")
	_, err = LoadUserConfig()
	require.Error(t, err, "nothing saved on failure")
}

func TestUploadCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := fakeAPI(t)
	path := filepath.Join(t.TempDir(), "cov.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n2\n3\n"), 0o600))

	out, err := runCLI(t, "", "upload", "--host", srv.URL, "--token", "tok-admin",
		"--dataset", "tele2_coverage", "--label", "mar", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Successfully uploaded 3 rows: version 13 "mar ( 2024-03-31 )"`)

	_, err = runCLI(t, "", "upload", "--host", srv.URL, "--token", "tok-admin", "--label", "mar", path)
	require.EqualError(t, err, "--dataset is required")

	_, err = runCLI(t, "", "upload", "--host", srv.URL, "--token", "tok-admin", "--dataset", "missing", "--label", "x", path)
	require.EqualError(t, err, `dataset "missing" not found`)
}

func TestOutputFormatValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := runCLI(t, "", "version", "-o", "yaml")
	require.EqualError(t, err, `unsupported output format "yaml": use 'table' or 'json'`)

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cmadmin version dev")
}
