package core

import "context"

type ctxKey int

const userIDKey ctxKey = iota

// WithUserID returns a copy of ctx carrying the authenticated user's ID.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFrom returns the authenticated user's ID carried by ctx or ErrUnauthenticated.
func UserIDFrom(ctx context.Context) (int64, error) {
	if id, ok := ctx.Value(userIDKey).(int64); ok && id != 0 {
		return id, nil
	}
	return 0, ErrUnauthenticated
}
