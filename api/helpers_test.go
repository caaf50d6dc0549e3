package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warden/config"
	"warden/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server = config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            8080,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
	cfg.CSRF = config.CSRFConfig{
		Enabled:    true,
		MetaName:   "csrf-token",
		HeaderName: "X-CSRF-Token",
		FieldName:  "csrf_token",
		CookieName: "warden_session",
		TokenTTL:   time.Hour,
		TokenBytes: 32,
	}
	cfg.Store.Backend = config.StoreBackendMemory
	cfg.Store.Memory.Size = 100
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"
	return cfg
}

// setupTestAPI builds an API over a memory token store. mutate may adjust the config first.
func setupTestAPI(t *testing.T, mutate ...func(*config.Config)) (*API, func()) {
	t.Helper()
	cfg := newTestConfig()
	for _, m := range mutate {
		m(cfg)
	}
	tokens := store.NewMemoryStore(cfg.Store.Memory.Size, cfg.CSRF.TokenTTL)
	a := NewAPI(cfg, tokens, zaptest.NewLogger(t).Sugar())
	return a, func() {
		_ = a.Stop(context.Background())
		_ = tokens.Close()
	}
}

// seedSession stores a fresh token for a new session and returns both.
func seedSession(t *testing.T, a *API) (sid, token string) {
	t.Helper()
	sid = uuid.NewString()
	token, err := generateCSRFToken(32)
	require.NoError(t, err)
	require.NoError(t, a.tokens.Put(context.Background(), sid, token))
	return sid, token
}

func serve(a *API, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
