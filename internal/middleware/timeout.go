package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/objectiveSquid/chatwire/internal/packet"
)

// Timeout enforces a maximum duration per dispatched request.
//
// spec.md §9 leaves this an explicit open question ("No request
// timeout in v1 ... SHOULD add a configurable upper bound per
// request"); this resolves it the way the teacher's TimeOutMiddleware
// does — race the handler against ctx.Done() in a goroutine. As in the
// teacher, the handler goroutine is not cancelled on timeout, only
// abandoned; true cancellation would require every store call to
// respect ctx, which the reference store implementation does via
// database/sql's *Context methods, so in practice an abandoned handler
// unwinds promptly once its in-flight query returns ctx.Err().
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, username string, req packet.Body) (packet.Body, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				body packet.Body
				err  error
			}
			done := make(chan result, 1)
			go func() {
				body, err := next(ctx, username, req)
				done <- result{body, err}
			}()

			select {
			case r := <-done:
				return r.body, r.err
			case <-ctx.Done():
				return nil, fmt.Errorf("middleware: request timed out after %s", d)
			}
		}
	}
}
