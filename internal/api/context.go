package api

import (
	"context"
)

type contextKey string

const clientContextKey contextKey = "client_id"

// ClientIDFromContext extracts the client id issued by clientMiddleware
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientContextKey).(string)
	return id
}

// ContextWithClientID adds the client id to context
func ContextWithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientContextKey, id)
}
