package http

import (
	"context"
	"log/slog"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey  contextKey = "principal"
	usernameContextKey   contextKey = "username"
	activityIDContextKey contextKey = "activity_id"
	blockIDContextKey    contextKey = "block_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithUsername injects the username resolved from the request path.
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameContextKey, username)
}

// UsernameFromContext extracts a username previously associated with the context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameContextKey).(string)
	return username, ok
}

// ContextWithActivityID injects the raw activity identifier from the request path.
func ContextWithActivityID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, activityIDContextKey, id)
}

// ActivityIDFromContext extracts a raw activity identifier previously associated
// with the context. Handlers parse and reject non-numeric values.
func ActivityIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(activityIDContextKey).(string)
	return id, ok
}

// ContextWithBlockID injects the raw availability block identifier from the request path.
func ContextWithBlockID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, blockIDContextKey, id)
}

// BlockIDFromContext extracts a raw availability block identifier previously
// associated with the context.
func BlockIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(blockIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request scoped logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
