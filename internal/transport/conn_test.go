package transport

import (
	"errors"
	"net"
	"testing"

	"github.com/objectiveSquid/chatwire/internal/packet"
	"github.com/objectiveSquid/chatwire/internal/protocol"
)

var testWidths = protocol.Widths{IDBytes: 4, TypeBytes: 2, LengthBytes: 4}

func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	return New(a, testWidths, nil), New(b, testWidths, nil)
}

func TestSendRecvRoundTrip(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()
	defer server.Close()

	want := packet.Packet{ID: 42, Body: packet.ClientAddFriend{Username: "bob"}}

	go func() {
		if err := client.Send(want); err != nil {
			t.Errorf("Send failed: %v", err)
		}
	}()

	got, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if got.ID != want.ID || got.Type() != want.Type() {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	body := got.Body.(packet.ClientAddFriend)
	if body.Username != "bob" {
		t.Fatalf("unexpected username: %s", body.Username)
	}
}

func TestRecvUnknownTypePreservesID(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()
	defer server.Close()

	go func() {
		header := protocol.Header{ID: 7, Type: 9999}
		_ = protocol.Encode(client.Raw(), testWidths, header, nil)
	}()

	_, err := server.Recv()
	var recvErr *RecvError
	if !errors.As(err, &recvErr) {
		t.Fatalf("expected *RecvError, got %v", err)
	}
	if recvErr.ID != 7 {
		t.Fatalf("expected id 7 preserved in error, got %d", recvErr.ID)
	}
}
