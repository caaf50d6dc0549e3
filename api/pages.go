package api

import (
	"bytes"
	_ "embed"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"warden/inject"

	"github.com/gorilla/mux"
)

//go:embed static/index.html
var defaultIndex []byte

var pageNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// pageSet reads .html pages from a directory, falling back to the built-in index
type pageSet struct {
	dir string
}

func newPageSet(dir string) *pageSet {
	return &pageSet{dir: dir}
}

// load returns the page called name. fs.ErrNotExist means there is no such page.
func (p *pageSet) load(name string) ([]byte, error) {
	if !pageNamePattern.MatchString(name) {
		return nil, fs.ErrNotExist
	}
	if p.dir != "" {
		data, err := os.ReadFile(filepath.Join(p.dir, name+".html"))
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return data, err
		}
	}
	if name == "index" {
		return defaultIndex, nil
	}
	return nil, fs.ErrNotExist
}

func (a *API) serveIndex(w http.ResponseWriter, r *http.Request) {
	a.writePage(w, r, "index")
}

func (a *API) servePage(w http.ResponseWriter, r *http.Request) {
	a.writePage(w, r, mux.Vars(r)["name"])
}

func (a *API) writePage(w http.ResponseWriter, r *http.Request, name string) {
	data, err := a.pages.load(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load page", err, a.logger)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// bufferedResponseWriter holds a response back so it can be rewritten before sending
type bufferedResponseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponseWriter() *bufferedResponseWriter {
	return &bufferedResponseWriter{header: make(http.Header)}
}

func (b *bufferedResponseWriter) Header() http.Header { return b.header }

func (b *bufferedResponseWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedResponseWriter) Write(data []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(data)
}

// pageInjectionMiddleware publishes the session's CSRF token into successful HTML
// responses and runs the injector over them, so every form leaves the server with the
// hidden token field already in place.
func (a *API) pageInjectionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := newBufferedResponseWriter()
		next.ServeHTTP(buf, r)
		if buf.status == 0 {
			buf.status = http.StatusOK
		}

		body := buf.body.Bytes()
		if buf.status == http.StatusOK && isHTML(buf.header.Get("Content-Type")) {
			rewritten, err := a.injectPage(w, r, body)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to prepare page", err, a.logger)
				return
			}
			body = rewritten
			buf.header.Set("Cache-Control", "no-store")
		}

		for k, v := range buf.header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(buf.status)
		if r.Method != http.MethodHead {
			_, _ = w.Write(body)
		}
	})
}

func (a *API) injectPage(w http.ResponseWriter, r *http.Request, page []byte) ([]byte, error) {
	token, err := a.issueToken(w, r)
	if err != nil {
		return nil, err
	}

	doc, err := inject.ParseDocument(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	if !inject.PublishToken(doc, a.config.CSRF.MetaName, token) {
		a.logger.Warnw("Page has no head, token not published", "path", r.URL.Path)
	}
	res := a.injector.Init(doc, nil, nil)

	var out bytes.Buffer
	if err := inject.RenderDocument(&out, doc); err != nil {
		return nil, err
	}

	a.logger.Debugw("Page prepared",
		"path", r.URL.Path,
		"forms_augmented", res.FormsAugmented,
		"request_id", GetRequestIDOrDefault(r.Context()))
	return out.Bytes(), nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}
