package grpcserver

import (
	"context"
)

type ctxKey string

const emailKey ctxKey = "rb.email"

// WithEmail stores the authenticated identity in context.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// EmailFromCtx fetches the authenticated identity from context.
func EmailFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok && v != ""
}
