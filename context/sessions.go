package context

import (
	"context"
)

type contextkey string

const (
	sessionTokenKey contextkey = "session_token"
)

// ContextSetSessionToken binds the browser's session token to ctx.
func ContextSetSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey, token)
}

// ContextGetSessionToken retrieves the session token from request context.
// Returns "" if no session is set.
func ContextGetSessionToken(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}
