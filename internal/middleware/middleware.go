// Package middleware implements the onion-model request chain that
// wraps a server session's dispatch handler, adapted from the
// teacher's middleware.Chain — the request/response shape changed from
// an RPCMessage envelope to a packet.Body pair, but the composition
// model (decorator pattern, outermost-first on request, outermost-last
// on response) is unchanged.
package middleware

import (
	"context"

	"github.com/objectiveSquid/chatwire/internal/packet"
)

// HandlerFunc dispatches one authenticated request body to its
// response body. username is the caller resolved at authentication.
type HandlerFunc func(ctx context.Context, username string, req packet.Body) (packet.Body, error)

// Middleware wraps a HandlerFunc with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so the first one given is the outermost
// layer: Chain(A, B)(handler) runs A.before, B.before, handler,
// B.after, A.after.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
