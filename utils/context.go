package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// Request scoped context keys
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
)

// NewRequestID generates a request identifier
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDFromContext returns the request id stored in ctx, or an empty string
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
