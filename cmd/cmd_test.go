package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"warden/api"
	"warden/config"
	"warden/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"
)

const testPage = `<!DOCTYPE html>
<html><head><meta name="csrf-token" content="tok-42"><title>t</title></head>
<body>
<form id="one" action="/api/save"><input name="csrf_token" value="old"></form>
<form id="two" action="/api/save"><input name="title"></form>
</body></html>`

// runCmd executes the root command with args and returns stdout and stderr
func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(append([]string{"--no-color"}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTempPage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestNewRootCmd tests the creation of the root command
func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.NotNil(t, cmd)
	assert.Equal(t, "warden", cmd.Use)

	actualCommands := make(map[string]bool)
	for _, subCmd := range cmd.Commands() {
		actualCommands[subCmd.Name()] = true
	}
	for _, expected := range []string{"serve", "inject", "fetch"} {
		assert.True(t, actualCommands[expected], "Missing command: %s", expected)
	}
}

// TestRootCommandFlags tests persistent flags
func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCmd()

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("quiet"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("output"))
}

func TestSubcommandFlags(t *testing.T) {
	cmd := NewRootCmd()

	inject, _, err := cmd.Find([]string{"inject"})
	require.NoError(t, err)
	for _, name := range []string{"token", "out", "publish"} {
		assert.NotNil(t, inject.Flags().Lookup(name), "inject missing flag %s", name)
	}

	fetch, _, err := cmd.Find([]string{"fetch"})
	require.NoError(t, err)
	for _, name := range []string{"method", "data", "content-type", "timeout", "progress"} {
		assert.NotNil(t, fetch.Flags().Lookup(name), "fetch missing flag %s", name)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := runCmd(t, "", "inject", "-", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --output")
}

func TestInjectCmd_File(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeTempPage(t, testPage)

	stdout, stderr, err := runCmd(t, "", "inject", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, `<input name="csrf_token" value="old"/>`)
	assert.Contains(t, stdout, `<input type="hidden" name="csrf_token" value="tok-42"/>`)
	assert.Equal(t, 2, strings.Count(stdout, `name="csrf_token"`))
	assert.Contains(t, stderr, "forms augmented: 1")
}

func TestInjectCmd_Stdin(t *testing.T) {
	t.Chdir(t.TempDir())

	stdout, stderr, err := runCmd(t, testPage, "inject", "-", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, `value="tok-42"`)
	assert.Empty(t, stderr)
}

func TestInjectCmd_OutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeTempPage(t, testPage)
	out := filepath.Join(t.TempDir(), "out.html")

	stdout, _, err := runCmd(t, "", "inject", path, "--out", out, "--quiet")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), `<input type="hidden" name="csrf_token" value="tok-42"/>`)
}

func TestInjectCmd_NoToken(t *testing.T) {
	t.Chdir(t.TempDir())
	page := `<html><head></head><body><form><input name="q"></form></body></html>`

	stdout, stderr, err := runCmd(t, page, "inject", "-", "--output", "json")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "csrf_token")

	var report injectionReport
	require.NoError(t, json.Unmarshal([]byte(stderr), &report))
	assert.False(t, report.Active)
	assert.Equal(t, 0, report.FormsAugmented)
	assert.Equal(t, "-", report.Source)
}

func TestInjectCmd_TokenFlagWithPublish(t *testing.T) {
	t.Chdir(t.TempDir())
	page := `<html><head></head><body><form></form><form></form></body></html>`

	stdout, stderr, err := runCmd(t, page, "inject", "-", "--token", "supplied-token-value", "--publish", "--output", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, `<meta name="csrf-token" content="supplied-token-value"/>`)
	assert.Equal(t, 2, strings.Count(stdout, `value="supplied-token-value"`))

	var report injectionReport
	require.NoError(t, yaml.Unmarshal([]byte(stderr), &report))
	assert.True(t, report.Active)
	assert.Equal(t, 2, report.FormsAugmented)
	assert.Equal(t, "supplied...", report.Token)
}

func TestInjectCmd_ConfigFieldName(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WARDEN_CSRF_FIELD_NAME", "authenticity_token")

	stdout, _, err := runCmd(t, testPage, "inject", "-", "--quiet")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, `name="authenticity_token"`))
}

func TestInjectCmd_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := runCmd(t, "", "inject", filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", maskToken(""))
	assert.Equal(t, "tok-42", maskToken("tok-42"))
	assert.Equal(t, "abcdefgh...", maskToken("abcdefghijklmnop"))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.RateLimit.RequestsPerSecond = 0

	tokens := store.NewMemoryStore(cfg.Store.Memory.Size, cfg.CSRF.TokenTTL)
	a := api.NewAPI(cfg, tokens, zaptest.NewLogger(t).Sugar())
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Stop(context.Background())
		_ = tokens.Close()
	})
	return srv
}

func TestFetchCmd_SendsPageToken(t *testing.T) {
	srv := newTestServer(t)

	stdout, stderr, err := runCmd(t, "", "fetch", srv.URL+"/", "/api/echo", "--data", `{"hello":"world"}`, "--output", "json")
	require.NoError(t, err)

	var echo api.EchoResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &echo))
	assert.Equal(t, http.MethodPost, echo.Method)
	assert.Equal(t, map[string]interface{}{"hello": "world"}, echo.Received)

	var report injectionReport
	require.NoError(t, json.Unmarshal([]byte(stderr), &report))
	assert.True(t, report.Active)
	assert.Equal(t, http.StatusOK, report.Status)
	assert.Equal(t, "POST "+srv.URL+"/api/echo", report.Request)
}

func TestFetchCmd_Delete(t *testing.T) {
	srv := newTestServer(t)

	stdout, _, err := runCmd(t, "", "fetch", srv.URL+"/", srv.URL+"/api/echo", "-X", "delete", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"method":"DELETE"`)
}

func TestFetchCmd_PageWithoutToken(t *testing.T) {
	srv := newTestServer(t)
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head></head><body></body></html>`))
	}))
	defer plain.Close()

	_, stderr, err := runCmd(t, "", "fetch", plain.URL, srv.URL+"/api/echo", "--data", `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, stderr, "No CSRF token found")
}

func TestFetchCmd_PageError(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := runCmd(t, "", "fetch", srv.URL+"/pages/missing", "/api/echo", "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load page")
}
