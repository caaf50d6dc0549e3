package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// CSRFTokenResponse is returned by /api/csrf-token
type CSRFTokenResponse struct {
	Token      string `json:"token"`
	HeaderName string `json:"header_name"`
	FieldName  string `json:"field_name"`
}

// EchoResponse is returned by /api/echo
type EchoResponse struct {
	RequestID string      `json:"request_id"`
	Method    string      `json:"method"`
	Received  interface{} `json:"received"`
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: a.tokens.Backend()}, a.logger)
}

func (a *API) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"}, a.logger)
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"}, a.logger)
}

// getCSRFToken hands the session's token to scripts that cannot read the page's meta element
func (a *API) getCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := a.issueToken(w, r)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to issue CSRF token", err, a.logger)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, CSRFTokenResponse{
		Token:      token,
		HeaderName: a.config.CSRF.HeaderName,
		FieldName:  a.config.CSRF.FieldName,
	}, a.logger)
}

// echo returns what it was sent. It only runs after the CSRF check has passed.
func (a *API) echo(w http.ResponseWriter, r *http.Request) {
	resp := EchoResponse{
		RequestID: GetRequestIDOrDefault(r.Context()),
		Method:    r.Method,
	}

	switch {
	case isFormContentType(r.Header.Get("Content-Type")):
		if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "Invalid form body", err, a.logger)
			return
		}
		fields := make(map[string][]string, len(r.PostForm))
		for k, v := range r.PostForm {
			if k == a.config.CSRF.FieldName {
				continue
			}
			fields[k] = v
		}
		resp.Received = fields
	case r.ContentLength == 0:
		resp.Received = nil
	default:
		var body interface{}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body", err, a.logger)
			return
		}
		resp.Received = body
	}

	writeJSON(w, http.StatusOK, resp, a.logger)
}
