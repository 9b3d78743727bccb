// Package ingress implements the fixed-order Ingress Middleware Chain
// (§4.5): trusted-host filter, CORS, security headers, rate limiter,
// request ID, request logger. The telemetry-validation step of the chain
// lives in pkg/telemetry (ValidationMiddleware).
package ingress

import "net/http"

// Middleware is a single chain link.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares in the exact order given, so the first
// entry is the outermost wrapper and runs first on the way in.
func Chain(h http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
