package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/objectiveSquid/chatwire/internal/packet"
	"github.com/objectiveSquid/chatwire/internal/transport"
)

// fakeServer answers exactly one request per call with a canned body,
// echoing the request's id, standing in for a real session.Server so
// these tests exercise only the client's multiplexer and event loop.
func fakeServer(t *testing.T, conn *transport.Conn, respond func(req packet.Packet) packet.Body) {
	t.Helper()
	req, err := conn.Recv()
	if err != nil {
		t.Errorf("fakeServer recv failed: %v", err)
		return
	}
	if err := conn.Send(packet.Packet{ID: req.ID, Body: respond(req)}); err != nil {
		t.Errorf("fakeServer send failed: %v", err)
	}
}

func newPipe() (client, server *transport.Conn) {
	a, b := net.Pipe()
	return transport.New(a, testWidths, nil), transport.New(b, testWidths, nil)
}

func connectTestClient(t *testing.T, username string) (*Client, *transport.Conn) {
	t.Helper()
	clientConn, serverConn := newPipe()

	done := make(chan *Client, 1)
	errCh := make(chan error, 1)
	go func() {
		c, err := Connect(context.Background(), clientConn, "sometoken", nil)
		if err != nil {
			errCh <- err
			return
		}
		done <- c
	}()

	req, err := serverConn.Recv()
	if err != nil {
		t.Fatalf("server recv failed: %v", err)
	}
	if _, ok := req.Body.(packet.ClientAuthenticate); !ok {
		t.Fatalf("expected ClientAuthenticate, got %T", req.Body)
	}
	if err := serverConn.Send(packet.Packet{ID: req.ID, Body: packet.ServerAuthenticate{Success: true, Username: username}}); err != nil {
		t.Fatalf("server send failed: %v", err)
	}

	select {
	case c := <-done:
		return c, serverConn
	case err := <-errCh:
		t.Fatalf("Connect failed: %v", err)
	case <-time.After(time.Second):
		t.Fatal("Connect timed out")
	}
	return nil, nil
}

func TestConnectAuthSuccess(t *testing.T) {
	c, _ := connectTestClient(t, "alice")
	if c.Username() != "alice" {
		t.Fatalf("Username() = %q, want alice", c.Username())
	}
}

func TestConnectAuthFailure(t *testing.T) {
	clientConn, serverConn := newPipe()

	errCh := make(chan error, 1)
	go func() {
		_, err := Connect(context.Background(), clientConn, "badtoken", nil)
		errCh <- err
	}()

	req, err := serverConn.Recv()
	if err != nil {
		t.Fatalf("server recv failed: %v", err)
	}
	if err := serverConn.Send(packet.Packet{ID: req.ID, Body: packet.ServerAuthenticate{Success: false}}); err != nil {
		t.Fatalf("server send failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error for a rejected token")
		}
	case <-time.After(time.Second):
		t.Fatal("Connect timed out")
	}
}

func TestHandleInputEventAddFriend(t *testing.T) {
	c, serverConn := connectTestClient(t, "alice")

	go fakeServer(t, serverConn, func(req packet.Packet) packet.Body {
		add, ok := req.Body.(packet.ClientAddFriend)
		if !ok || add.Username != "bob" {
			t.Errorf("unexpected request: %+v", req.Body)
		}
		return packet.ServerAddFriend{Success: true}
	})

	out, err := c.HandleInputEvent(context.Background(), InAddFriend{ID: 1, Username: "bob"})
	if err != nil {
		t.Fatalf("HandleInputEvent failed: %v", err)
	}
	result, ok := out.(OutAddFriend)
	if !ok || !result.Success || result.ID != 1 {
		t.Fatalf("unexpected output event: %+v", out)
	}
}

func TestRunEventLoopOrdering(t *testing.T) {
	c, serverConn := connectTestClient(t, "alice")

	go func() {
		fakeServer(t, serverConn, func(req packet.Packet) packet.Body { return packet.ServerSendMessage{} })
		fakeServer(t, serverConn, func(req packet.Packet) packet.Body { return packet.ServerSendMessage{} })
	}()

	in := make(chan InputEvent, 2)
	out := make(chan OutputEvent, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.RunEventLoop(ctx, in, out)

	in <- InSendMessage{ID: 1, Receiver: "bob", Content: "first"}
	in <- InSendMessage{ID: 2, Receiver: "bob", Content: "second"}

	first := <-out
	second := <-out
	if first.EventID() != 1 || second.EventID() != 2 {
		t.Fatalf("output order = %d, %d, want 1, 2", first.EventID(), second.EventID())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c, _ := connectTestClient(t, "alice")
	c.Stop(false)
	c.Stop(false)
}
