// Package packet defines the closed set of wire packet variants
// exchanged between chatwire client and server sessions, and the
// registry that maps a numeric Type tag to the variant's body codec.
//
// Each variant corresponds to one entry in the teacher's old
// PACKET_TYPE_TO_CLASS table (mini-rpc had a single RPCMessage
// envelope; chatwire's protocol instead has a closed union of typed
// packets, one tagged union member per request/response kind).
package packet

import "fmt"

// Type is the numeric tag selecting a packet variant, partitioned by
// origin per spec §3.
type Type uint32

const (
	TypeClientAuthenticate  Type = 100
	TypeClientGetRelations  Type = 101
	TypeClientGetMessages   Type = 102
	TypeClientAddFriend     Type = 103
	TypeClientRemoveFriend  Type = 104
	TypeClientSendMessage   Type = 105

	TypeQuit              Type = 200
	TypeInvalidPacketType Type = 201

	TypeServerAuthenticate Type = 300
	TypeServerGetRelations Type = 301
	TypeServerGetMessages  Type = 302
	TypeServerAddFriend    Type = 303
	TypeServerRemoveFriend Type = 304
	TypeServerSendMessage  Type = 305
)

var typeNames = map[Type]string{
	TypeClientAuthenticate: "ClientAuthenticate",
	TypeClientGetRelations: "ClientGetRelations",
	TypeClientGetMessages:  "ClientGetMessages",
	TypeClientAddFriend:    "ClientAddFriend",
	TypeClientRemoveFriend: "ClientRemoveFriend",
	TypeClientSendMessage:  "ClientSendMessage",
	TypeQuit:               "Quit",
	TypeInvalidPacketType:  "InvalidPacketType",
	TypeServerAuthenticate: "ServerAuthenticate",
	TypeServerGetRelations: "ServerGetRelations",
	TypeServerGetMessages:  "ServerGetMessages",
	TypeServerAddFriend:    "ServerAddFriend",
	TypeServerRemoveFriend: "ServerRemoveFriend",
	TypeServerSendMessage:  "ServerSendMessage",
}

// String implements fmt.Stringer for logging.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint32(t))
}

// Valid reports whether t is a member of the closed enumeration.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}
