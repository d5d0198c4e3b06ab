// Package requestid provides correlation ID propagation via context.
package requestid

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Header is the HTTP header carrying the correlation ID.
const Header = "X-Request-ID"

// WithRequestID returns a context with the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from context, or generates a new one.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// New generates a new request ID and returns the enriched context and ID.
func New(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return WithRequestID(ctx, id), id
}

// FromHeader reuses a caller-supplied ID when it parses as a UUID and
// falls back to a fresh one otherwise.
func FromHeader(ctx context.Context, header string) (context.Context, string) {
	header = strings.TrimSpace(header)
	if _, err := uuid.Parse(header); err == nil {
		return WithRequestID(ctx, header), header
	}
	return New(ctx)
}
