package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/objectiveSquid/chatwire/internal/packet"
	"github.com/objectiveSquid/chatwire/internal/transport"
	"go.uber.org/zap"
)

// Client is the client-side conversation over one connection: connect,
// authenticate, then repeatedly translate InputEvents into request
// packets and block for their paired response — the Go analogue of the
// original's Connection thread, replacing its busy-polled pending list
// (§4.5) with a goroutine-owned receive loop and a map of per-request
// promises (spec §9's "replace the linear scan with a map from id to a
// promise/future" design note).
type Client struct {
	conn *transport.Conn
	log  *zap.SugaredLogger
	rand *rand.Rand

	username string

	mu      sync.Mutex
	pending map[uint64]chan pendingResult
	closed  bool
}

type pendingResult struct {
	pkt packet.Packet
	err error
}

// Connect authenticates over conn and, on success, starts the
// background receive loop. On authentication failure the connection is
// left open for the caller to close; Connect itself never closes it.
//
// A deadline on ctx is honored the same way the server side honors its
// own auth timeout: set on the underlying net.Conn via SetDeadline
// before the handshake and cleared afterward, so a peer that accepts
// the TCP connection but never answers ClientAuthenticate doesn't hang
// Connect forever.
func Connect(ctx context.Context, conn *transport.Conn, token string, log *zap.SugaredLogger) (*Client, error) {
	c := &Client{
		conn:    conn,
		log:     log,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		pending: make(map[uint64]chan pendingResult),
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.Raw().SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("session: set auth deadline: %w", err)
		}
	}

	id := c.newPacketID()
	if err := conn.Send(packet.Packet{ID: id, Body: packet.ClientAuthenticate{Token: token}}); err != nil {
		return nil, fmt.Errorf("session: send authenticate: %w", err)
	}

	pkt, err := conn.Recv()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("session: authenticate: %w", ctx.Err())
		}
		return nil, fmt.Errorf("session: recv authenticate response: %w", err)
	}
	auth, ok := pkt.Body.(packet.ServerAuthenticate)
	if !ok {
		return nil, fmt.Errorf("session: unexpected first response type %T", pkt.Body)
	}
	if !auth.Success {
		return nil, fmt.Errorf("session: authentication rejected")
	}

	if err := conn.Raw().SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("session: clear auth deadline: %w", err)
	}

	c.username = auth.Username
	go c.recvLoop()
	return c, nil
}

// Username returns the username resolved at authentication.
func (c *Client) Username() string { return c.username }

// Stop sends Quit (if sendQuit) and closes the connection. No frame is
// ever sent after Quit by this client (spec §8 invariant 7).
func (c *Client) Stop(sendQuit bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if sendQuit {
		id := c.newPacketID()
		_ = c.conn.Send(packet.Packet{ID: id, Body: packet.Quit{}})
	}
	c.conn.Close()
}

// recvLoop is the connection's sole reader. Every inbound frame is
// routed to the pending channel registered by sendAndWaitForResponse;
// a frame with no matching pending entry (none are defined in v1, but
// the mechanism tolerates them per §4.5) is logged and dropped.
func (c *Client) recvLoop() {
	for {
		pkt, err := c.conn.Recv()
		if err != nil {
			c.failAllPending(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[pkt.ID]
		if ok {
			delete(c.pending, pkt.ID)
		}
		c.mu.Unlock()

		if !ok {
			if c.log != nil {
				c.log.Debugw("received frame with no pending waiter", "id", pkt.ID, "type", pkt.Type().String())
			}
			continue
		}
		ch <- pendingResult{pkt: pkt}
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- pendingResult{err: err}
		delete(c.pending, id)
	}
}

// sendAndWaitForResponse implements spec §4.5: send pkt, then block
// until the frame carrying the same id arrives, however many unrelated
// frames are received in between (none exist in v1; recvLoop drops any
// frame that has no registered waiter).
func (c *Client) sendAndWaitForResponse(ctx context.Context, body packet.Body) (packet.Body, error) {
	id := c.newPacketID()
	ch := make(chan pendingResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("session: client is closed")
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.conn.Send(packet.Packet{ID: id, Body: body}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("session: send: %w", err)
	}

	select {
	case r := <-ch:
		return r.pkt.Body, r.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// RunEventLoop drains in in FIFO order, handling one event fully
// before starting the next — spec §5's "input-event queue is processed
// in FIFO order" guarantee, with the v1 single-in-flight discipline
// meaning Output events appear in the same order their inputs arrived.
// It returns when ctx is cancelled or in is closed.
func (c *Client) RunEventLoop(ctx context.Context, in <-chan InputEvent, out chan<- OutputEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-in:
			if !ok {
				return nil
			}
			result, err := c.HandleInputEvent(ctx, event)
			if err != nil {
				if c.log != nil {
					c.log.Errorw("input event failed", "error", err)
				}
				continue
			}
			select {
			case out <- result:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// newPacketID draws a correlation id uniformly from the full uint64
// range. Collisions with an id still awaiting a response are not
// guarded against at this layer (negligible probability, per spec §4.4
// on event ids — the same reasoning applies to packet ids).
func (c *Client) newPacketID() uint64 {
	return c.rand.Uint64()
}

// HandleInputEvent translates one InputEvent into its request packet,
// waits for the paired response, and returns the corresponding
// OutputEvent — the event→packet table of spec §4.4.
func (c *Client) HandleInputEvent(ctx context.Context, event InputEvent) (OutputEvent, error) {
	switch e := event.(type) {
	case InGetRelations:
		resp, err := c.sendAndWaitForResponse(ctx, packet.ClientGetRelations{})
		if err != nil {
			return nil, err
		}
		body, ok := resp.(packet.ServerGetRelations)
		if !ok {
			return nil, fmt.Errorf("session: unexpected response type %T for GetRelations", resp)
		}
		return OutGetRelations{ID: e.ID, Relations: body.Relations}, nil

	case InGetMessages:
		resp, err := c.sendAndWaitForResponse(ctx, packet.ClientGetMessages{SecondaryUser: e.Sender, After: e.After})
		if err != nil {
			return nil, err
		}
		body, ok := resp.(packet.ServerGetMessages)
		if !ok {
			return nil, fmt.Errorf("session: unexpected response type %T for GetMessages", resp)
		}
		return OutGetMessages{ID: e.ID, Messages: body.Messages}, nil

	case InAddFriend:
		resp, err := c.sendAndWaitForResponse(ctx, packet.ClientAddFriend{Username: e.Username})
		if err != nil {
			return nil, err
		}
		body, ok := resp.(packet.ServerAddFriend)
		if !ok {
			return nil, fmt.Errorf("session: unexpected response type %T for AddFriend", resp)
		}
		return OutAddFriend{ID: e.ID, Success: body.Success}, nil

	case InRemoveFriend:
		if _, err := c.sendAndWaitForResponse(ctx, packet.ClientRemoveFriend{Username: e.Username}); err != nil {
			return nil, err
		}
		return OutRemoveFriend{ID: e.ID}, nil

	case InSendMessage:
		if _, err := c.sendAndWaitForResponse(ctx, packet.ClientSendMessage{Receiver: e.Receiver, Content: e.Content}); err != nil {
			return nil, err
		}
		return OutSendMessage{ID: e.ID}, nil

	default:
		return nil, fmt.Errorf("session: unsupported input event %T", event)
	}
}
