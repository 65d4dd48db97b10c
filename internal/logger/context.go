package logger

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores the correlation id of the current operation in the
// context. It travels with the request through services and adapters and is
// stamped onto every log record (see requestIDHandler) and outgoing event.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the correlation id stored in the context, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
