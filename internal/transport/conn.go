// Package transport wraps a net.Conn with chatwire's framing so
// sessions exchange packet.Packet values instead of raw bytes.
//
// This is the direct descendant of the teacher's PacketSocket-adjacent
// ClientTransport: one goroutine owns reads (TCP is a byte stream, a
// frame boundary only makes sense to a single sequential reader), and
// writes are serialized through a mutex so two goroutines replying on
// the same connection can never interleave a header with someone
// else's body.
package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/objectiveSquid/chatwire/internal/packet"
	"github.com/objectiveSquid/chatwire/internal/protocol"
	"go.uber.org/zap"
)

// Conn is a framed, packet-level connection. Recv must only ever be
// called from one goroutine at a time (the read loop owns it); Send is
// safe to call concurrently.
type Conn struct {
	raw    net.Conn
	widths protocol.Widths
	log    *zap.SugaredLogger

	sendMu sync.Mutex
}

// New wraps raw with the given header widths. log is used for
// connection-scoped debug logging, mirroring the original's
// per-peer-address named logger.
func New(raw net.Conn, widths protocol.Widths, log *zap.SugaredLogger) *Conn {
	return &Conn{raw: raw, widths: widths, log: log}
}

// Raw returns the underlying connection, e.g. to close it or inspect
// its remote address.
func (c *Conn) Raw() net.Conn {
	return c.raw
}

// Send encodes pkt's body with the connection's configured widths and
// writes the full frame. Send blocks until the write completes — this
// implementation always uses a "sendall"-equivalent, never a partial
// write (net.Conn.Write already guarantees this for a stream socket,
// but the lock also guarantees atomicity across concurrent Send calls).
func (c *Conn) Send(pkt packet.Packet) error {
	body := pkt.Body.Encode(c.widths)
	header := protocol.Header{ID: pkt.ID, Type: uint32(pkt.Type())}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := protocol.Encode(c.raw, c.widths, header, body); err != nil {
		return fmt.Errorf("transport: send %s: %w", pkt.Type(), err)
	}
	if c.log != nil {
		c.log.Debugw("sent packet", "type", pkt.Type().String(), "id", pkt.ID, "body_len", len(body))
	}
	return nil
}

// Recv reads and decodes exactly one complete frame. It blocks until a
// full frame arrives, the connection resets, or a protocol violation
// is detected — there is no partial-frame result: once header bytes
// are read, Recv always returns either a complete packet or an error.
//
// On a *packet.DecodeError, the frame's correlation id and raw type
// tag are still available (the ID and Type fields of the *RecvError
// returned, see below) — callers that need
// to echo the offending request's id (e.g. an InvalidPacketType reply)
// use those rather than a zero value, per spec §9.
func (c *Conn) Recv() (packet.Packet, error) {
	header, body, err := protocol.Decode(c.raw, c.widths)
	if err != nil {
		return packet.Packet{}, err
	}

	decoded, err := packet.DecodeBody(packet.Type(header.Type), body, c.widths)
	if err != nil {
		return packet.Packet{}, &RecvError{ID: header.ID, Type: packet.Type(header.Type), Err: err}
	}

	pkt := packet.Packet{ID: header.ID, Body: decoded}
	if c.log != nil {
		c.log.Debugw("received packet", "type", pkt.Type().String(), "id", pkt.ID, "body_len", len(body))
	}
	return pkt, nil
}

// RecvError wraps a packet.DecodeError with the frame's header fields,
// which are still known even though the body failed to parse.
type RecvError struct {
	ID   uint64
	Type packet.Type
	Err  error
}

func (e *RecvError) Error() string {
	return fmt.Sprintf("transport: decode body (id=%d, type=%s): %v", e.ID, e.Type, e.Err)
}

func (e *RecvError) Unwrap() error { return e.Err }

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}
