package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"warden/config"
	"warden/inject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tokenInputs returns, per form in document order, the values of its csrf_token inputs.
func tokenInputs(t *testing.T, body []byte) [][]string {
	t.Helper()
	doc, err := inject.ParseDocument(bytes.NewReader(body))
	require.NoError(t, err)

	var forms [][]string
	var walk func(n *html.Node, current *[]string)
	walk = func(n *html.Node, current *[]string) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Form {
			fields := []string{}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, &fields)
			}
			forms = append(forms, fields)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Input && current != nil {
			var name, value string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "value":
					value = attr.Val
				}
			}
			if name == "csrf_token" {
				*current = append(*current, value)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, current)
		}
	}
	walk(doc, nil)
	return forms
}

func metaToken(t *testing.T, body []byte) string {
	t.Helper()
	doc, err := inject.ParseDocument(bytes.NewReader(body))
	require.NoError(t, err)
	return inject.MetaTokenSource{}.Token(doc)
}

func TestIndexPage_PublishesTokenAndAugmentsForms(t *testing.T) {
	a, cleanup := setupTestAPI(t)
	defer cleanup()

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	cookie := sessionCookie(t, rec, "warden_session")
	require.NotNil(t, cookie)
	stored, err := a.tokens.Get(t.Context(), cookie.Value)
	require.NoError(t, err)

	body := rec.Body.Bytes()
	assert.Equal(t, stored, metaToken(t, body))

	forms := tokenInputs(t, body)
	require.Len(t, forms, 2)
	for _, fields := range forms {
		assert.Equal(t, []string{stored}, fields)
	}
}

func TestPagesDir_ExistingFieldsUntouched(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenario.html"), []byte(`<!DOCTYPE html>
<html><head><meta name="csrf-token" content="stale"><title>scenario</title></head><body>
<form id="one" method="post"><input type="hidden" name="csrf_token" value="old"></form>
<form id="two" method="post"><input name="comment"></form>
</body></html>`), 0o600))

	a, cleanup := setupTestAPI(t, func(c *config.Config) { c.Pages.Dir = dir })
	defer cleanup()

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/pages/scenario", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec, "warden_session")
	require.NotNil(t, cookie)
	stored, err := a.tokens.Get(t.Context(), cookie.Value)
	require.NoError(t, err)

	body := rec.Body.Bytes()
	assert.Equal(t, stored, metaToken(t, body), "meta is overwritten with the session token")
	assert.Equal(t, 1, bytes.Count(body, []byte(`name="csrf-token"`)))

	forms := tokenInputs(t, body)
	require.Len(t, forms, 2)
	assert.Equal(t, []string{"old"}, forms[0])
	assert.Equal(t, []string{stored}, forms[1])
}

func TestPagesDir_OverridesIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<html><body><p>custom</p></body></html>`), 0o600))

	a, cleanup := setupTestAPI(t, func(c *config.Config) { c.Pages.Dir = dir })
	defer cleanup()

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "custom")
	assert.NotEmpty(t, metaToken(t, rec.Body.Bytes()), "meta is added to the implied head")
	assert.Empty(t, tokenInputs(t, rec.Body.Bytes()))
}

func TestPage_NotFound(t *testing.T) {
	a, cleanup := setupTestAPI(t, func(c *config.Config) { c.Pages.Dir = t.TempDir() })
	defer cleanup()

	for _, path := range []string{"/pages/missing", "/pages/bad.name", "/pages/-dash"} {
		rec := serve(a, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Nil(t, sessionCookie(t, rec, "warden_session"), "no session is issued for %s", path)
	}
}

func TestPage_Head(t *testing.T) {
	a, cleanup := setupTestAPI(t)
	defer cleanup()

	rec := serve(a, httptest.NewRequest(http.MethodHead, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))
}

func TestPageInjectionMiddleware_PassesThroughNonHTML(t *testing.T) {
	a, cleanup := setupTestAPI(t)
	defer cleanup()

	h := a.pageInjectionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"form":"<form></form>"}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"form":"<form></form>"}`, rec.Body.String())
	assert.Nil(t, sessionCookie(t, rec, "warden_session"))
}
