// Package kit holds the transport-neutral plumbing shared by the gateway and
// the plantilla client: context keys, the Endpoint abstraction and its MCP
// adapter.
package kit

import "context"

// Endpoint is a transport-agnostic operation. HTTP handlers, CLI commands and
// MCP tools all wrap the same Endpoint.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so that the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
