package auditcontext

import (
	"context"
	"strings"
)

type key int

const (
	requestIDKey key = iota
	ipAddressKey
	userAgentKey
	actorTypeKey
	actorIDKey
)

// Metadata is the request-scoped audit enrichment.
type Metadata struct {
	RequestID string
	IPAddress string
	UserAgent string
	ActorType string
	ActorID   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return withString(ctx, ipAddressKey, ip)
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withString(ctx, userAgentKey, userAgent)
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = withString(ctx, actorTypeKey, actorType)
	return withString(ctx, actorIDKey, actorID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, actorTypeKey), stringValue(ctx, actorIDKey)
}

func FromContext(ctx context.Context) Metadata {
	actorType, actorID := ActorFromContext(ctx)
	return Metadata{
		RequestID: RequestIDFromContext(ctx),
		IPAddress: stringValue(ctx, ipAddressKey),
		UserAgent: stringValue(ctx, userAgentKey),
		ActorType: actorType,
		ActorID:   actorID,
	}
}

func withString(ctx context.Context, k key, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, k, value)
}

func stringValue(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(k).(string)
	return value
}
