package transport

import (
	"context"
	"net/http"
)

type (
	contextKey string
)

const (
	// ContextRetriedKey marks a request that already went through a refresh.
	ContextRetriedKey contextKey = "authRetried"
)

func isRetried(ctx context.Context) bool {
	if value := ctx.Value(ContextRetriedKey); value != nil {
		retried, _ := value.(bool)
		return retried
	}
	return false
}

func markRetried(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), ContextRetriedKey, true))
}
