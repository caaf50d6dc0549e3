package api

import "context"

// contextKey is a private type to prevent context key collisions across packages.
type contextKey string

const (
	// ContextKeyRequestID stores the unique request identifier (string)
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeySessionID stores the session the request's CSRF token belongs to (string)
	ContextKeySessionID contextKey = "session_id"
)

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts the request id from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyRequestID).(string)
	return id, ok && id != ""
}

// GetRequestIDOrDefault returns the request id, or "unknown" when there is none.
func GetRequestIDOrDefault(ctx context.Context) string {
	if id, ok := GetRequestID(ctx); ok {
		return id
	}
	return "unknown"
}

// WithSessionID returns a copy of ctx carrying the session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// GetSessionID extracts the session id from the context.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeySessionID).(string)
	return id, ok && id != ""
}
