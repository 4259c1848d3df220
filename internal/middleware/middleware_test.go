package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/objectiveSquid/chatwire/internal/packet"
	"go.uber.org/zap"
)

func echoHandler(body packet.Body, err error) HandlerFunc {
	return func(ctx context.Context, username string, req packet.Body) (packet.Body, error) {
		return body, err
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, username string, req packet.Body) (packet.Body, error) {
				order = append(order, name+":before")
				resp, err := next(ctx, username, req)
				order = append(order, name+":after")
				return resp, err
			}
		}
	}

	handler := Chain(tag("a"), tag("b"))(echoHandler(&packet.Quit{}, nil))
	if _, err := handler(context.Background(), "alice", &packet.Quit{}); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	want := []string{"a:before", "b:before", "b:after", "a:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLogging(t *testing.T) {
	handler := Logging(zap.NewNop().Sugar())(echoHandler(&packet.Quit{}, nil))
	resp, err := handler(context.Background(), "alice", &packet.Quit{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response body")
	}
}

func TestLoggingPropagatesError(t *testing.T) {
	wantErr := errors.New("dispatch failed")
	handler := Logging(zap.NewNop().Sugar())(echoHandler(nil, wantErr))
	_, err := handler(context.Background(), "alice", &packet.Quit{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestTimeoutPass(t *testing.T) {
	handler := Timeout(50 * time.Millisecond)(echoHandler(&packet.Quit{}, nil))
	resp, err := handler(context.Background(), "alice", &packet.Quit{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response body")
	}
}

func TestTimeoutExceeded(t *testing.T) {
	slow := func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, username string, req packet.Body) (packet.Body, error) {
			time.Sleep(50 * time.Millisecond)
			return &packet.Quit{}, nil
		}
	}
	handler := Timeout(5 * time.Millisecond)(slow(nil))
	_, err := handler(context.Background(), "alice", &packet.Quit{})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
