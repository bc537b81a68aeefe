package models

import "context"

type requestMetaKey struct{}

// RequestMeta carries request-scoped identity and tracing data through
// context so the peer client and event publishers can propagate it without
// widening every signature.
type RequestMeta struct {
	RequestId      string
	CorrelationId  string
	BearerToken    string
	CustomerId     string // subject claim, when authenticated
	Identification string
}

// WithRequestMeta attaches request metadata to a context.
func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// GetRequestMeta retrieves request metadata from context, or nil if absent.
func GetRequestMeta(ctx context.Context) *RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(*RequestMeta)
	return meta
}

// CorrelationIdFrom returns the correlation id bound to ctx, or "" if none.
func CorrelationIdFrom(ctx context.Context) string {
	if meta := GetRequestMeta(ctx); meta != nil {
		return meta.CorrelationId
	}
	return ""
}
