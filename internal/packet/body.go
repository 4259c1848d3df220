package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/objectiveSquid/chatwire/internal/codec"
	"github.com/objectiveSquid/chatwire/internal/protocol"
)

// Body is implemented by every packet variant's payload. Encode
// produces the wire body; Type identifies which variant it is so the
// frame header's type tag can be set without the caller repeating it.
//
// Encode takes the connection's configured Widths because exactly one
// variant (InvalidPacketType) embeds raw Type tags whose width must
// match the frame header's own type field (§4.2) — every other variant
// ignores it.
type Body interface {
	Type() Type
	Encode(widths protocol.Widths) []byte
}

// decoders maps a Type tag to the function that parses a raw body into
// the corresponding Body value — the Go analogue of the teacher's
// PACKET_TYPE_TO_CLASS dict, except decoding returns a value instead of
// mutating a pre-constructed instance.
var decoders = map[Type]func([]byte, protocol.Widths) (Body, error){
	TypeClientAuthenticate: decodeClientAuthenticate,
	TypeClientGetRelations: decodeClientGetRelations,
	TypeClientGetMessages:  decodeClientGetMessages,
	TypeClientAddFriend:    decodeClientAddFriend,
	TypeClientRemoveFriend: decodeClientRemoveFriend,
	TypeClientSendMessage:  decodeClientSendMessage,

	TypeQuit:              decodeQuit,
	TypeInvalidPacketType: decodeInvalidPacketType,

	TypeServerAuthenticate: decodeServerAuthenticate,
	TypeServerGetRelations: decodeServerGetRelations,
	TypeServerGetMessages:  decodeServerGetMessages,
	TypeServerAddFriend:    decodeServerAddFriend,
	TypeServerRemoveFriend: decodeServerRemoveFriend,
	TypeServerSendMessage:  decodeServerSendMessage,
}

// DecodeError distinguishes "this type tag isn't in the registry at
// all" (Unknown) from "the type is known but its body is malformed"
// (wrong boolean byte, truncated field, ...). Sessions respond to the
// former with InvalidPacketType when a request was expected, and to
// the latter by terminating the session — both are protocol
// violations per spec §7, but only one has a defined wire reply.
type DecodeError struct {
	Type    Type
	Unknown bool
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("packet: unknown packet type %s", e.Type)
	}
	return fmt.Sprintf("packet: malformed %s body: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeBody looks up the variant for typ and parses data into it.
func DecodeBody(typ Type, data []byte, widths protocol.Widths) (Body, error) {
	decode, ok := decoders[typ]
	if !ok {
		return nil, &DecodeError{Type: typ, Unknown: true}
	}
	body, err := decode(data, widths)
	if err != nil {
		return nil, &DecodeError{Type: typ, Err: err}
	}
	return body, nil
}

// ---- Client request bodies ----

// ClientAuthenticate carries the plaintext token; its body is the raw
// UTF-8 token with no length prefix (data_length delimits it).
type ClientAuthenticate struct {
	Token string
}

func (ClientAuthenticate) Type() Type { return TypeClientAuthenticate }
func (b ClientAuthenticate) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	w.PutRaw([]byte(b.Token))
	return w.Bytes()
}
func decodeClientAuthenticate(data []byte, _ protocol.Widths) (Body, error) {
	return ClientAuthenticate{Token: codec.NewReader(data).Rest()}, nil
}

// ClientGetRelations has an empty body.
type ClientGetRelations struct{}

func (ClientGetRelations) Type() Type                      { return TypeClientGetRelations }
func (ClientGetRelations) Encode(protocol.Widths) []byte    { return nil }
func decodeClientGetRelations([]byte, protocol.Widths) (Body, error) {
	return ClientGetRelations{}, nil
}

// ClientGetMessages requests the conversation with SecondaryUser going
// back After seconds; After == 0 means "unbounded" (see spec §9).
type ClientGetMessages struct {
	SecondaryUser string
	After         uint64
}

func (ClientGetMessages) Type() Type { return TypeClientGetMessages }
func (b ClientGetMessages) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	w.PutString16(b.SecondaryUser)
	w.PutUint64(b.After)
	return w.Bytes()
}
func decodeClientGetMessages(data []byte, _ protocol.Widths) (Body, error) {
	r := codec.NewReader(data)
	name, err := r.String16()
	if err != nil {
		return nil, err
	}
	after, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	return ClientGetMessages{SecondaryUser: name, After: after}, nil
}

// ClientAddFriend's body is the raw target username.
type ClientAddFriend struct {
	Username string
}

func (ClientAddFriend) Type() Type { return TypeClientAddFriend }
func (b ClientAddFriend) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	w.PutRaw([]byte(b.Username))
	return w.Bytes()
}
func decodeClientAddFriend(data []byte, _ protocol.Widths) (Body, error) {
	return ClientAddFriend{Username: codec.NewReader(data).Rest()}, nil
}

// ClientRemoveFriend's body is the raw target username.
type ClientRemoveFriend struct {
	Username string
}

func (ClientRemoveFriend) Type() Type { return TypeClientRemoveFriend }
func (b ClientRemoveFriend) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	w.PutRaw([]byte(b.Username))
	return w.Bytes()
}
func decodeClientRemoveFriend(data []byte, _ protocol.Widths) (Body, error) {
	return ClientRemoveFriend{Username: codec.NewReader(data).Rest()}, nil
}

// ClientSendMessage: the receiver is length-prefixed, content fills the
// remainder of the body.
type ClientSendMessage struct {
	Receiver string
	Content  string
}

func (ClientSendMessage) Type() Type { return TypeClientSendMessage }
func (b ClientSendMessage) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	w.PutString16(b.Receiver)
	w.PutRaw([]byte(b.Content))
	return w.Bytes()
}
func decodeClientSendMessage(data []byte, _ protocol.Widths) (Body, error) {
	r := codec.NewReader(data)
	receiver, err := r.String16()
	if err != nil {
		return nil, err
	}
	return ClientSendMessage{Receiver: receiver, Content: r.Rest()}, nil
}

// ---- Shared bodies ----

// Quit has an empty body and is the last frame its sender ever writes.
type Quit struct{}

func (Quit) Type() Type                   { return TypeQuit }
func (Quit) Encode(protocol.Widths) []byte { return nil }
func decodeQuit([]byte, protocol.Widths) (Body, error) {
	return Quit{}, nil
}

// InvalidPacketType reports, as a list of accepted Type tags, what the
// session would have accepted instead of the packet that triggered it.
// Each tag is encoded at the connection's configured type width, the
// same field width used in the frame header itself (§4.2).
type InvalidPacketType struct {
	Accepted []Type
}

func (InvalidPacketType) Type() Type { return TypeInvalidPacketType }
func (b InvalidPacketType) Encode(widths protocol.Widths) []byte {
	buf := make([]byte, 0, len(b.Accepted)*widths.TypeBytes)
	for _, t := range b.Accepted {
		buf = append(buf, encodeTag(uint32(t), widths.TypeBytes)...)
	}
	return buf
}

func decodeInvalidPacketType(data []byte, widths protocol.Widths) (Body, error) {
	if widths.TypeBytes <= 0 {
		return nil, fmt.Errorf("packet: invalid type width %d", widths.TypeBytes)
	}
	var accepted []Type
	for len(data) >= widths.TypeBytes {
		accepted = append(accepted, Type(decodeTag(data[:widths.TypeBytes])))
		data = data[widths.TypeBytes:]
	}
	return InvalidPacketType{Accepted: accepted}, nil
}

// encodeTag and decodeTag mirror protocol.putUint/getUint's width-safe
// pattern: an 8-byte scratch array sliced from the top, since
// widths.TypeBytes can be as large as protocol's maxUintWidth (8), not
// just 4.
func encodeTag(v uint32, width int) []byte {
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], uint64(v))
	return full[8-width:]
}

func decodeTag(b []byte) uint32 {
	var full [8]byte
	copy(full[8-len(b):], b)
	return uint32(binary.BigEndian.Uint64(full[:]))
}

// ---- Server response bodies ----

// ServerAuthenticate reports whether the supplied token was valid and,
// if so, the resolved username.
type ServerAuthenticate struct {
	Success  bool
	Username string
}

func (ServerAuthenticate) Type() Type { return TypeServerAuthenticate }
func (b ServerAuthenticate) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	w.PutBool(b.Success)
	if b.Success {
		w.PutRaw([]byte(b.Username))
	}
	return w.Bytes()
}
func decodeServerAuthenticate(data []byte, _ protocol.Widths) (Body, error) {
	r := codec.NewReader(data)
	success, err := r.Bool()
	if err != nil {
		return nil, err
	}
	return ServerAuthenticate{Success: success, Username: r.Rest()}, nil
}

// Relation is a directed edge describing FirstUsername's view of
// SecondaryUsername. Friendship is symmetric at the logical level and
// is always represented by two mirror rows (see store.Store).
type Relation struct {
	FirstUsername      string
	SecondaryUsername  string
	FirstIsFriend      bool
	SecondaryIsFriend  bool
	SecondaryIsBlocked bool
}

// ServerGetRelations answers ClientGetRelations with every relation row
// whose FirstUsername is the authenticated caller.
type ServerGetRelations struct {
	Relations []Relation
}

func (ServerGetRelations) Type() Type { return TypeServerGetRelations }
func (b ServerGetRelations) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	for _, rel := range b.Relations {
		w.PutString16(rel.FirstUsername)
		w.PutString16(rel.SecondaryUsername)
		w.PutBool(rel.FirstIsFriend)
		w.PutBool(rel.SecondaryIsFriend)
		w.PutBool(rel.SecondaryIsBlocked)
	}
	return w.Bytes()
}
func decodeServerGetRelations(data []byte, _ protocol.Widths) (Body, error) {
	r := codec.NewReader(data)
	var relations []Relation
	for r.Len() > 0 {
		first, err := r.String16()
		if err != nil {
			return nil, err
		}
		secondary, err := r.String16()
		if err != nil {
			return nil, err
		}
		firstFriend, err := r.Bool()
		if err != nil {
			return nil, err
		}
		secondaryFriend, err := r.Bool()
		if err != nil {
			return nil, err
		}
		blocked, err := r.Bool()
		if err != nil {
			return nil, err
		}
		relations = append(relations, Relation{
			FirstUsername:      first,
			SecondaryUsername:  secondary,
			FirstIsFriend:      firstFriend,
			SecondaryIsFriend:  secondaryFriend,
			SecondaryIsBlocked: blocked,
		})
	}
	return ServerGetRelations{Relations: relations}, nil
}

// Message is an immutable chat message; not amendable or deletable.
type Message struct {
	Sender   string
	Receiver string
	TimeSent uint64 // Unix epoch seconds
	Content  string
}

// ServerGetMessages answers ClientGetMessages with the matching window
// of messages between the caller and the requested peer.
type ServerGetMessages struct {
	Messages []Message
}

func (ServerGetMessages) Type() Type { return TypeServerGetMessages }
func (b ServerGetMessages) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	for _, m := range b.Messages {
		w.PutString16(m.Sender)
		w.PutString16(m.Receiver)
		w.PutUint64(m.TimeSent)
		w.PutString64(m.Content)
	}
	return w.Bytes()
}
func decodeServerGetMessages(data []byte, _ protocol.Widths) (Body, error) {
	r := codec.NewReader(data)
	var messages []Message
	for r.Len() > 0 {
		sender, err := r.String16()
		if err != nil {
			return nil, err
		}
		receiver, err := r.String16()
		if err != nil {
			return nil, err
		}
		timeSent, err := r.Uint64()
		if err != nil {
			return nil, err
		}
		content, err := r.String64()
		if err != nil {
			return nil, err
		}
		messages = append(messages, Message{
			Sender:   sender,
			Receiver: receiver,
			TimeSent: timeSent,
			Content:  content,
		})
	}
	return ServerGetMessages{Messages: messages}, nil
}

// ServerAddFriend reports whether the add-friend operation succeeded.
type ServerAddFriend struct {
	Success bool
}

func (ServerAddFriend) Type() Type { return TypeServerAddFriend }
func (b ServerAddFriend) Encode(protocol.Widths) []byte {
	w := codec.NewWriter()
	w.PutBool(b.Success)
	return w.Bytes()
}
func decodeServerAddFriend(data []byte, _ protocol.Widths) (Body, error) {
	success, err := codec.NewReader(data).Bool()
	if err != nil {
		return nil, err
	}
	return ServerAddFriend{Success: success}, nil
}

// ServerRemoveFriend has an empty body; remove-friend never fails in a
// way that is reported to the caller beyond the boolean store result,
// which the session does not currently surface (mirrors spec §4.3).
type ServerRemoveFriend struct{}

func (ServerRemoveFriend) Type() Type                   { return TypeServerRemoveFriend }
func (ServerRemoveFriend) Encode(protocol.Widths) []byte { return nil }
func decodeServerRemoveFriend([]byte, protocol.Widths) (Body, error) {
	return ServerRemoveFriend{}, nil
}

// ServerSendMessage has an empty body.
type ServerSendMessage struct{}

func (ServerSendMessage) Type() Type                   { return TypeServerSendMessage }
func (ServerSendMessage) Encode(protocol.Widths) []byte { return nil }
func decodeServerSendMessage([]byte, protocol.Widths) (Body, error) {
	return ServerSendMessage{}, nil
}
