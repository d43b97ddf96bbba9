package httpx

import "context"

type ctxKey string

const (
	CtxKeySubject     ctxKey = "subject"
	CtxKeyAuthorities ctxKey = "authorities"
)

// Identity is the authenticated caller behind a request.
type Identity struct {
	Subject     string
	Authorities []string
}

// WithIdentity stores id in ctx for downstream handlers.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, CtxKeySubject, id.Subject)
	ctx = context.WithValue(ctx, CtxKeyAuthorities, id.Authorities)
	return ctx
}

// SubjectFromContext returns the authenticated subject, or "".
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeySubject).(string)
	return s
}

func authoritiesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyAuthorities).([]string); ok {
		return v
	}
	return nil
}
