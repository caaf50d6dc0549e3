package api

import (
	"encoding/json"
	"mime"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	maxFormBytes = 1 << 20
	maxJSONBytes = 1 << 20
)

// writeError writes an error response to the client and logs it
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if err != nil && logger != nil {
		logger.Errorw(message,
			"error", err.Error(),
			"status_code", statusCode,
		)
	} else if logger != nil {
		logger.Errorw(message,
			"status_code", statusCode,
		)
	}
	writeJSON(w, statusCode, map[string]string{"error": message}, logger)
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		// Response already started, log for monitoring
		logger.Errorw("Failed to encode JSON response", "error", err)
	}
}

// isFormContentType reports whether contentType names a url-encoded or multipart form
// body. Media types compare case-insensitively.
func isFormContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// getRealIP returns the client IP, honouring X-Forwarded-For and X-Real-IP only when
// the server sits behind a trusted proxy
func getRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ip := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
