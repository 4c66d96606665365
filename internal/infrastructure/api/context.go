package api

import (
	"context"
	"net/http"

	"shopify-app-auth/internal/infrastructure/session"

	"github.com/go-chi/chi/v5/middleware"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const sessionKey contextKey = "session"

func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
