// Package acceptor runs the server-side listen/accept loop, spawning
// one session.Server per accepted connection. Adapted from the
// teacher's server.Server.Serve/handleConn/Shutdown: the service map is
// gone (there is one closed dispatch table, built by session.Dispatch
// and optionally wrapped by a middleware chain), but the accept-loop
// shape, the shutdown
// flag used to distinguish an intentional listener close from a real
// Accept error, and the WaitGroup-bounded graceful Shutdown are
// unchanged.
package acceptor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/objectiveSquid/chatwire/internal/middleware"
	"github.com/objectiveSquid/chatwire/internal/protocol"
	"github.com/objectiveSquid/chatwire/internal/ratelimit"
	"github.com/objectiveSquid/chatwire/internal/session"
	"github.com/objectiveSquid/chatwire/internal/store"
	"github.com/objectiveSquid/chatwire/internal/transport"
	"go.uber.org/zap"
)

// Acceptor owns the listening socket and the set of in-flight sessions.
type Acceptor struct {
	listener    net.Listener
	store       store.Store
	widths      protocol.Widths
	authTimeout time.Duration
	dispatch    middleware.HandlerFunc
	newLimiter  func() *ratelimit.Limiter
	log         *zap.SugaredLogger

	wg       sync.WaitGroup
	shutdown atomic.Bool
}

// Options configures a new Acceptor. NewLimiter may be nil to disable
// per-connection rate limiting; otherwise it is called once per
// accepted connection so each session gets its own token bucket.
type Options struct {
	Store       store.Store
	Widths      protocol.Widths
	AuthTimeout time.Duration
	Middlewares []middleware.Middleware
	NewLimiter  func() *ratelimit.Limiter
	Log         *zap.SugaredLogger
}

// New builds an Acceptor that will dispatch requests through
// session.Dispatch wrapped by opts.Middlewares, applied outermost-first
// as middleware.Chain composes them.
func New(opts Options) *Acceptor {
	handler := session.Dispatch(opts.Store)
	if len(opts.Middlewares) > 0 {
		handler = middleware.Chain(opts.Middlewares...)(handler)
	}
	return &Acceptor{
		store:       opts.Store,
		widths:      opts.Widths,
		authTimeout: opts.AuthTimeout,
		dispatch:    handler,
		newLimiter:  opts.NewLimiter,
		log:         opts.Log,
	}
}

// Serve listens on address and accepts connections until Shutdown is
// called or Accept fails unexpectedly.
func (a *Acceptor) Serve(network, address string) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("acceptor: listen: %w", err)
	}
	a.listener = listener

	for {
		conn, err := listener.Accept()
		if err != nil {
			if a.shutdown.Load() {
				return nil
			}
			return fmt.Errorf("acceptor: accept: %w", err)
		}
		a.wg.Add(1)
		go a.handleConn(conn)
	}
}

// handleConn runs one session.Server to completion.
func (a *Acceptor) handleConn(conn net.Conn) {
	defer a.wg.Done()

	remote := conn.RemoteAddr().String()
	log := a.log
	if log != nil {
		log = log.With("remote_addr", remote)
	}

	var limiter *ratelimit.Limiter
	if a.newLimiter != nil {
		limiter = a.newLimiter()
	}

	wire := transport.New(conn, a.widths, log)
	srv := session.NewServer(wire, a.store, a.dispatch, limiter, a.authTimeout, log)
	if err := srv.Run(context.Background()); err != nil && log != nil {
		log.Errorw("session ended with error", "error", err)
	}
}

// Shutdown stops accepting new connections and waits (up to timeout)
// for in-flight sessions to finish. Order matters: the shutdown flag
// must be set before the listener is closed, or the resulting Accept
// error would be mistaken for a real failure.
func (a *Acceptor) Shutdown(timeout time.Duration) error {
	a.shutdown.Store(true)
	if a.listener != nil {
		a.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("acceptor: timeout waiting for sessions to finish")
	}
}
