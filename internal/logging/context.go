package logging

import (
	"context"
	"strings"
)

type ctxKey struct{}

// ContextWith returns a copy of ctx carrying key/value pairs that every
// adapter adds to records logged with it. Pairs accumulate across calls.
//
//	ctx = logging.ContextWith(ctx, "worker", "reconcile")
func ContextWith(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := fromContext(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func fromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	args, _ := ctx.Value(ctxKey{}).([]any)
	return args
}

// withContext prepends the context pairs to args.
func withContext(ctx context.Context, args []any) []any {
	base := fromContext(ctx)
	if len(base) == 0 {
		return args
	}
	out := make([]any, 0, len(base)+len(args))
	out = append(out, base...)
	return append(out, args...)
}

const redacted = "[redacted]"

// sensitiveKeys never reach a log sink with their value.
var sensitiveKeys = []string{"password", "pin", "token", "secret", "apikey"}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if k == s || strings.HasSuffix(k, "_"+s) {
			return true
		}
	}
	return false
}
