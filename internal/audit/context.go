package audit

import (
	"context"
	"strings"
)

type requestInfoKey struct{}

// RequestInfo carries request-scoped metadata into audit records.
type RequestInfo struct {
	IP        string
	RequestID string
}

// WithRequestInfo attaches request metadata to the context for audit logging.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	info.IP = strings.TrimSpace(info.IP)
	info.RequestID = strings.TrimSpace(info.RequestID)
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext extracts request metadata if present.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	if v, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		return v
	}
	return RequestInfo{}
}
