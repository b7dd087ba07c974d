// Package shield provides the HTTP middleware shared by the gateway and the
// plantilla front end: request tracing, security headers, HEAD handling and
// per-IP rate limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.GatewayStack(rl) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GatewayStack returns the middleware for the proxy listener:
// TraceID → RateLimiter. Security headers and HEAD rewriting are left out so
// that methods and upstream headers pass through untouched. rl may be nil.
func GatewayStack(rl *RateLimiter) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{TraceID}
	if rl != nil {
		stack = append(stack, rl.Middleware)
	}
	return stack
}

// FrontStack returns the middleware for services that render their own pages:
// HeadToGet → SecurityHeaders → TraceID.
func FrontStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		TraceID,
	}
}
