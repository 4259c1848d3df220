package acceptor

import (
	"net"
	"testing"
	"time"

	"github.com/objectiveSquid/chatwire/internal/config"
	"github.com/objectiveSquid/chatwire/internal/packet"
	"github.com/objectiveSquid/chatwire/internal/protocol"
	"github.com/objectiveSquid/chatwire/internal/store"
	"github.com/objectiveSquid/chatwire/internal/store/sqlite"
	"github.com/objectiveSquid/chatwire/internal/transport"
)

var testWidths = protocol.Widths{IDBytes: 4, TypeBytes: 2, LengthBytes: 4}

func TestAcceptorServesAndShutsDown(t *testing.T) {
	st, err := sqlite.Open(config.ServerDatabaseConfig{
		Filepath:          ":memory:",
		TokenLength:       16,
		TokenCharset:      "abcdefghijklmnopqrstuvwxyz0123456789",
		MinUsernameLength: 1,
		MaxUsernameLength: 32,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()
	if err := st.EnsureTables(t.Context()); err != nil {
		t.Fatalf("EnsureTables failed: %v", err)
	}
	token, result, err := st.AddUser(t.Context(), "alice")
	if err != nil || result != store.AddUserSuccess {
		t.Fatalf("AddUser failed: result=%v err=%v", result, err)
	}

	a := New(Options{Store: st, Widths: testWidths, AuthTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Serve("tcp", addr) }()
	time.Sleep(50 * time.Millisecond)

	raw, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn := transport.New(raw, testWidths, nil)

	if err := conn.Send(packet.Packet{ID: 1, Body: packet.ClientAuthenticate{Token: token}}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	resp, err := conn.Recv()
	if err != nil {
		t.Fatalf("recv failed: %v", err)
	}
	auth, ok := resp.Body.(packet.ServerAuthenticate)
	if !ok || !auth.Success {
		t.Fatalf("unexpected auth response: %+v", resp.Body)
	}
	raw.Close()

	if err := a.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := <-serveErr; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
}
