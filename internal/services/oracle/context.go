package oracle

import "context"

// Context key types for logging (avoids collisions with string keys)
type contextKey string

const (
	userIDContextKey    contextKey = "user_id"
	contentIDContextKey contextKey = "content_id"
	requestIDContextKey contextKey = "request_id"
)

// WithUserID attaches a user ID to the context for oracle debug logging.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// WithContentID attaches a content unit ID to the context for oracle debug logging.
func WithContentID(ctx context.Context, contentID string) context.Context {
	return context.WithValue(ctx, contentIDContextKey, contentID)
}

// WithRequestID attaches a request ID to the context for oracle debug logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// ExtractRequestID extracts a request ID from context if available.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// ExtractUserID extracts a user ID from context if available.
func ExtractUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDContextKey).(string); ok {
		return id
	}
	return ""
}

// ExtractContentID extracts a content unit ID from context if available.
func ExtractContentID(ctx context.Context) string {
	if id, ok := ctx.Value(contentIDContextKey).(string); ok {
		return id
	}
	return ""
}
