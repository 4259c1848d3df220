// Package session implements the two stateful conversations a
// chatwire process can hold over one TCP connection: the server's
// authenticate-then-serve state machine (spec.md §4.3) and the
// client's connect-then-drain-events loop with its request/response
// multiplexer (§4.4/§4.5).
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/objectiveSquid/chatwire/internal/middleware"
	"github.com/objectiveSquid/chatwire/internal/packet"
	"github.com/objectiveSquid/chatwire/internal/protocol"
	"github.com/objectiveSquid/chatwire/internal/ratelimit"
	"github.com/objectiveSquid/chatwire/internal/store"
	"github.com/objectiveSquid/chatwire/internal/transport"
	"go.uber.org/zap"
)

// authAccepted is the sole type a fresh connection may open with.
var authAccepted = []packet.Type{packet.TypeClientAuthenticate}

// authedAccepted is the set of request types an AUTHED session dispatches.
var authedAccepted = []packet.Type{
	packet.TypeQuit,
	packet.TypeClientGetRelations,
	packet.TypeClientGetMessages,
	packet.TypeClientAddFriend,
	packet.TypeClientRemoveFriend,
	packet.TypeClientSendMessage,
}

// Server is one accepted connection's conversation: START, AUTH_WAIT,
// AUTHED, CLOSED, matching spec §4.3's state diagram exactly. It owns
// nothing beyond its own Conn and is discarded once Run returns.
type Server struct {
	conn        *transport.Conn
	store       store.Store
	dispatch    middleware.HandlerFunc
	limiter     *ratelimit.Limiter
	authTimeout time.Duration
	log         *zap.SugaredLogger

	username string
}

// NewServer builds a server-side session. dispatch is the fully
// wrapped middleware chain terminating in the store-backed business
// handler (see Dispatch below); limiter may be nil to disable
// per-connection rate limiting.
func NewServer(conn *transport.Conn, st store.Store, dispatch middleware.HandlerFunc, limiter *ratelimit.Limiter, authTimeout time.Duration, log *zap.SugaredLogger) *Server {
	return &Server{
		conn:        conn,
		store:       st,
		dispatch:    dispatch,
		limiter:     limiter,
		authTimeout: authTimeout,
		log:         log,
	}
}

// Run drives the session to completion. It never returns an error for
// an orderly close (timeout, Quit, peer reset) — only for conditions
// the caller should log as unexpected (e.g. the store misbehaving).
// The connection is always closed before Run returns.
func (s *Server) Run(ctx context.Context) error {
	defer s.conn.Close()

	authed, err := s.awaitAuthentication()
	if err != nil {
		return err
	}
	if !authed {
		return nil
	}

	return s.serve(ctx)
}

// awaitAuthentication implements START → AUTH_WAIT → {AUTHED, CLOSED}.
// The returned bool reports whether the session reached AUTHED.
func (s *Server) awaitAuthentication() (bool, error) {
	deadline := time.Now().Add(s.authTimeout)
	if err := s.conn.Raw().SetReadDeadline(deadline); err != nil {
		return false, fmt.Errorf("session: set auth deadline: %w", err)
	}

	pkt, err := s.conn.Recv()
	if err != nil {
		var recvErr *transport.RecvError
		if errors.As(err, &recvErr) {
			// A frame arrived but didn't parse into a known/accepted
			// type — still a "wrong first packet", reply then close.
			s.sendInvalidType(recvErr.ID, authAccepted)
			return false, nil
		}
		// Timeout or transport failure: close without a Quit or reply.
		return false, nil
	}

	auth, ok := pkt.Body.(packet.ClientAuthenticate)
	if !ok {
		s.sendInvalidType(pkt.ID, authAccepted)
		return false, nil
	}

	if err := s.conn.Raw().SetReadDeadline(time.Time{}); err != nil {
		return false, fmt.Errorf("session: clear auth deadline: %w", err)
	}

	valid, username, err := s.store.CheckToken(context.Background(), auth.Token)
	if err != nil {
		return false, fmt.Errorf("session: check token: %w", err)
	}
	if !valid {
		s.send(pkt.ID, packet.ServerAuthenticate{Success: false})
		return false, nil
	}

	s.username = username
	s.send(pkt.ID, packet.ServerAuthenticate{Success: true, Username: username})
	if s.log != nil {
		s.log = s.log.With("username", username)
	}
	return true, nil
}

// serve implements the AUTHED loop: dispatch ⟶ send response ⟶ AUTHED,
// until Quit, an unrecoverable transport error, or ctx is cancelled.
func (s *Server) serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		pkt, err := s.conn.Recv()
		if err != nil {
			var recvErr *transport.RecvError
			if errors.As(err, &recvErr) {
				var decErr *packet.DecodeError
				if errors.As(recvErr.Err, &decErr) && !decErr.Unknown {
					// Known type, malformed body: terminate, no reply.
					return nil
				}
				s.sendInvalidType(recvErr.ID, authedAccepted)
				continue
			}
			// Transport failure or peer reset: terminate, no Quit.
			return nil
		}

		if _, quit := pkt.Body.(packet.Quit); quit {
			return nil
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		resp, ok := s.dispatchOne(ctx, pkt.Body)
		if !ok {
			s.sendInvalidType(pkt.ID, authedAccepted)
			continue
		}
		s.send(pkt.ID, resp)
	}
}

// dispatchOne routes req through the middleware chain only if it's one
// of the five AUTHED request types other than Quit (serve handles Quit
// before calling this); anything else (a recognized but
// wrong-direction variant, e.g. a client replaying ServerSendMessage)
// is treated the same as an unrecognized tag.
func (s *Server) dispatchOne(ctx context.Context, req packet.Body) (packet.Body, bool) {
	switch req.(type) {
	case packet.ClientGetRelations, packet.ClientGetMessages, packet.ClientAddFriend,
		packet.ClientRemoveFriend, packet.ClientSendMessage:
	default:
		return nil, false
	}

	resp, err := s.dispatch(ctx, s.username, req)
	if err != nil {
		if s.log != nil {
			s.log.Errorw("dispatch failed", "error", err)
		}
		return nil, false
	}
	return resp, true
}

func (s *Server) sendInvalidType(id uint64, accepted []packet.Type) {
	s.send(id, packet.InvalidPacketType{Accepted: accepted})
}

func (s *Server) send(id uint64, body packet.Body) {
	if err := s.conn.Send(packet.Packet{ID: id, Body: body}); err != nil && s.log != nil {
		s.log.Debugw("send failed", "error", err)
	}
}

// Dispatch builds the business HandlerFunc the middleware chain wraps:
// the dispatch table of spec §4.3, store call ⟶ response body.
func Dispatch(st store.Store) middleware.HandlerFunc {
	return func(ctx context.Context, username string, req packet.Body) (packet.Body, error) {
		switch r := req.(type) {
		case packet.ClientGetRelations:
			relations, err := st.GetAllRelations(ctx, username)
			if err != nil {
				return nil, fmt.Errorf("session: get_all_relations: %w", err)
			}
			return packet.ServerGetRelations{Relations: relations}, nil

		case packet.ClientGetMessages:
			after := r.After
			if after == 0 {
				// spec §9: after=0 means "unbounded" at the session
				// boundary, not "nothing older than now" as a literal
				// store-layer comparison would imply.
				after = unboundedWindowSeconds
			}
			messages, err := st.GetMessages(ctx, username, r.SecondaryUser, after)
			if err != nil {
				return nil, fmt.Errorf("session: get_messages: %w", err)
			}
			return packet.ServerGetMessages{Messages: messages}, nil

		case packet.ClientAddFriend:
			success, err := st.AddFriend(ctx, username, r.Username)
			if err != nil {
				return nil, fmt.Errorf("session: add_friend: %w", err)
			}
			return packet.ServerAddFriend{Success: success}, nil

		case packet.ClientRemoveFriend:
			if _, err := st.RemoveFriend(ctx, username, r.Username); err != nil {
				return nil, fmt.Errorf("session: remove_friend: %w", err)
			}
			return packet.ServerRemoveFriend{}, nil

		case packet.ClientSendMessage:
			if err := st.AddMessage(ctx, username, r.Receiver, r.Content); err != nil {
				return nil, fmt.Errorf("session: add_message: %w", err)
			}
			return packet.ServerSendMessage{}, nil

		default:
			return nil, fmt.Errorf("session: unhandled request type %T", req)
		}
	}
}

// unboundedWindowSeconds stands in for "all of history" when a client
// asks for after=0. A century comfortably exceeds any real deployment's
// message history while staying well inside uint64 range.
const unboundedWindowSeconds = 100 * 365 * 24 * 60 * 60
