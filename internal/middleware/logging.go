package middleware

import (
	"context"
	"time"

	"github.com/objectiveSquid/chatwire/internal/packet"
	"go.uber.org/zap"
)

// Logging records the request type, caller, duration, and any error
// for each dispatched request — the packet-protocol analogue of the
// teacher's LoggingMiddleware, which logged ServiceMethod/duration for
// each RPC call.
func Logging(log *zap.SugaredLogger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, username string, req packet.Body) (packet.Body, error) {
			start := time.Now()
			resp, err := next(ctx, username, req)
			log.Debugw("dispatched request",
				"type", req.Type().String(),
				"username", username,
				"duration", time.Since(start),
				"error", err,
			)
			return resp, err
		}
	}
}
