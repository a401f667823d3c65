package types

import "context"

type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
)

// HeaderRequestID is the HTTP header the request id is read from and
// echoed back on.
const HeaderRequestID = "X-Request-ID"

// GetRequestID returns the request id attached by the HTTP layer, if any
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(CtxRequestID).(string); ok {
		return id
	}
	return ""
}
