package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"warden/metrics"
	"warden/store"

	"github.com/google/uuid"
)

// CSRFErrorResponse represents a CSRF validation error response
type CSRFErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// generateCSRFToken returns n random bytes, hex-encoded
func generateCSRFToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// sessionFromRequest returns the session id from the request context or the session cookie.
// Ids that are not UUIDs are ignored.
func (a *API) sessionFromRequest(r *http.Request) (string, bool) {
	if sid, ok := GetSessionID(r.Context()); ok {
		return sid, true
	}
	c, err := r.Cookie(a.config.CSRF.CookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// issueToken returns the token of the caller's session. A session without a live token
// gets a new one, and a caller without a session gets a new session cookie on w.
func (a *API) issueToken(w http.ResponseWriter, r *http.Request) (string, error) {
	ctx := r.Context()
	sid, ok := a.sessionFromRequest(r)
	if ok {
		token, err := a.tokens.Get(ctx, sid)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("failed to look up session token: %w", err)
		}
	} else {
		sid = uuid.NewString()
	}

	token, err := generateCSRFToken(a.config.CSRF.TokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	if err := a.tokens.Put(ctx, sid, token); err != nil {
		return "", fmt.Errorf("failed to store CSRF token: %w", err)
	}
	metrics.TokensIssued.WithLabelValues(a.tokens.Backend()).Inc()

	// Refresh the cookie so its lifetime follows the token's.
	http.SetCookie(w, &http.Cookie{
		Name:     a.config.CSRF.CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(a.config.CSRF.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.config.CSRF.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	a.logger.Debugw("Issued CSRF token",
		"session_id", sid,
		"backend", a.tokens.Backend(),
		"request_id", GetRequestIDOrDefault(ctx))
	return token, nil
}

// csrfProtectionMiddleware provides CSRF protection for state-changing operations.
// The submitted token is read from the CSRF header, or from the form field when the
// header is absent, and must equal the token stored for the caller's session.
func (a *API) csrfProtectionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.config.CSRF.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		// Only check CSRF for state-changing methods
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := getRealIP(r, a.config.Server.TrustProxy)
		requestID := GetRequestIDOrDefault(r.Context())

		sid, ok := a.sessionFromRequest(r)
		if !ok {
			a.logger.Warnf("CSRF AUDIT: Session missing - IP: %s, Method: %s, Path: %s, RequestID: %s",
				clientIP, r.Method, r.URL.Path, requestID)
			metrics.RecordValidation("no_session")
			a.writeCSRFError(w, http.StatusForbidden, "CSRF token missing or invalid")
			return
		}

		expected, err := a.tokens.Get(r.Context(), sid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				a.logger.Warnf("CSRF AUDIT: No token for session - IP: %s, Method: %s, Path: %s, RequestID: %s",
					clientIP, r.Method, r.URL.Path, requestID)
				metrics.RecordValidation("expired")
				a.writeCSRFError(w, http.StatusForbidden, "CSRF token missing or invalid")
				return
			}
			a.logger.Errorw("Token store lookup failed", "error", err, "request_id", requestID)
			metrics.RecordValidation("store_error")
			a.writeCSRFError(w, http.StatusServiceUnavailable, "CSRF validation unavailable")
			return
		}

		submitted := r.Header.Get(a.config.CSRF.HeaderName)
		source := "header"
		if submitted == "" {
			submitted = a.formToken(w, r)
			source = "form"
		}
		if submitted == "" {
			a.logger.Warnf("CSRF AUDIT: Token missing - IP: %s, Method: %s, Path: %s, RequestID: %s",
				clientIP, r.Method, r.URL.Path, requestID)
			metrics.RecordValidation("missing")
			a.writeCSRFError(w, http.StatusForbidden, "CSRF token missing or invalid")
			return
		}

		if !isValidCSRFHeaderToken(submitted) {
			a.logger.Errorf("CSRF AUDIT: Invalid token format - IP: %s, Method: %s, Path: %s, Source: %s, RequestID: %s",
				clientIP, r.Method, r.URL.Path, source, requestID)
			metrics.RecordValidation("malformed")
			a.writeCSRFError(w, http.StatusForbidden, "CSRF token missing or invalid")
			return
		}

		if !compareCSRFTokenTimingSafe(expected, submitted) {
			a.logger.Errorf("CSRF AUDIT: Token mismatch - IP: %s, Method: %s, Path: %s, User-Agent: %s, RequestID: %s",
				clientIP, r.Method, r.URL.Path, r.Header.Get("User-Agent"), requestID)
			metrics.RecordValidation("mismatch")
			a.writeCSRFError(w, http.StatusForbidden, "CSRF token missing or invalid")
			return
		}

		a.logger.Debugf("CSRF AUDIT: Validation successful - IP: %s, Method: %s, Path: %s, Source: %s, RequestID: %s",
			clientIP, r.Method, r.URL.Path, source, requestID)
		metrics.RecordValidation("passed")

		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
	})
}

// formToken reads the CSRF field from url-encoded or multipart bodies. Other bodies are
// left unread.
func (a *API) formToken(w http.ResponseWriter, r *http.Request) string {
	if !isFormContentType(r.Header.Get("Content-Type")) {
		return ""
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.PostFormValue(a.config.CSRF.FieldName)
}

func isValidCSRFHeaderToken(token string) bool {
	return len(token) >= 32 && len(token) <= 128 && !strings.Contains(token, "\n") && !strings.Contains(token, "\r")
}

func compareCSRFTokenTimingSafe(expected, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

// writeCSRFError writes a JSON CSRF error response with code and error fields
func (a *API) writeCSRFError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(CSRFErrorResponse{
		Code:  "CSRF_INVALID",
		Error: message,
	}); err != nil {
		a.logger.Errorw("Failed to encode CSRF error response",
			"error", err,
			"message", message)
	}
}
