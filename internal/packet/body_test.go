package packet

import (
	"errors"
	"reflect"
	"testing"

	"github.com/objectiveSquid/chatwire/internal/protocol"
)

var testWidths = protocol.Widths{IDBytes: 4, TypeBytes: 2, LengthBytes: 4}

func roundTrip(t *testing.T, body Body) Body {
	t.Helper()
	data := body.Encode(testWidths)
	decoded, err := DecodeBody(body.Type(), data, testWidths)
	if err != nil {
		t.Fatalf("DecodeBody(%s) failed: %v", body.Type(), err)
	}
	return decoded
}

func TestRoundTripAllVariants(t *testing.T) {
	cases := []Body{
		ClientAuthenticate{Token: "sometoken123"},
		ClientGetRelations{},
		ClientGetMessages{SecondaryUser: "bob", After: 3600},
		ClientGetMessages{SecondaryUser: "bob", After: 0},
		ClientAddFriend{Username: "bob"},
		ClientRemoveFriend{Username: "bob"},
		ClientSendMessage{Receiver: "bob", Content: "hi there"},
		Quit{},
		InvalidPacketType{Accepted: []Type{TypeClientAuthenticate}},
		InvalidPacketType{Accepted: []Type{TypeQuit, TypeClientGetRelations, TypeClientGetMessages, TypeClientAddFriend, TypeClientRemoveFriend, TypeClientSendMessage}},
		ServerAuthenticate{Success: true, Username: "alice"},
		ServerAuthenticate{Success: false, Username: ""},
		ServerGetRelations{Relations: []Relation{
			{FirstUsername: "alice", SecondaryUsername: "bob", FirstIsFriend: true, SecondaryIsFriend: false, SecondaryIsBlocked: false},
		}},
		ServerGetMessages{Messages: []Message{
			{Sender: "alice", Receiver: "bob", TimeSent: 1717000000, Content: "hi"},
		}},
		ServerAddFriend{Success: true},
		ServerAddFriend{Success: false},
		ServerRemoveFriend{},
		ServerSendMessage{},
	}

	for _, body := range cases {
		got := roundTrip(t, body)
		if !reflect.DeepEqual(got, body) {
			t.Errorf("round trip mismatch for %s: got %#v, want %#v", body.Type(), got, body)
		}
	}
}

func TestDecodeInvalidBoolByte(t *testing.T) {
	data := []byte{0x42, 'a', 'l', 'i', 'c', 'e'}
	if _, err := DecodeBody(TypeServerAuthenticate, data, testWidths); err == nil {
		t.Fatal("expected error decoding invalid boolean byte, got nil")
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodeBody(Type(9999), nil, testWidths)
	var decErr *DecodeError
	if err == nil || !errors.As(err, &decErr) || !decErr.Unknown {
		t.Fatalf("expected an Unknown DecodeError, got %v", err)
	}
}

func TestTypeString(t *testing.T) {
	if TypeClientAuthenticate.String() != "ClientAuthenticate" {
		t.Errorf("unexpected name: %s", TypeClientAuthenticate.String())
	}
	if Type(9999).Valid() {
		t.Error("expected Type(9999) to be invalid")
	}
}
