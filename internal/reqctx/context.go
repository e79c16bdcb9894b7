package reqctx

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	keyRID ctxKey = "rid"
	keyUID ctxKey = "uid"
)

// WithRID stores the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithUID stores the authenticated user id.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, keyUID, uid)
}

// UID returns the authenticated user id if present.
func UID(ctx context.Context) string {
	v, _ := ctx.Value(keyUID).(string)
	return v
}

// Logger returns log annotated with the rid and uid carried by ctx.
func Logger(ctx context.Context, log *zap.Logger) *zap.Logger {
	if rid := RID(ctx); rid != "" {
		log = log.With(zap.String("rid", rid))
	}
	if uid := UID(ctx); uid != "" {
		log = log.With(zap.String("uid", uid))
	}
	return log
}
