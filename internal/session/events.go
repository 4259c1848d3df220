package session

import "github.com/objectiveSquid/chatwire/internal/packet"

// InputEvent is a producer-facing request into the client session,
// distinct from the wire packet it is translated into (spec §4.4). Id
// is independent of any packet id and is only meaningful to the
// producer that issued it.
type InputEvent interface {
	inputEvent()
}

type InGetRelations struct{ ID uint64 }

type InGetMessages struct {
	ID     uint64
	Sender string
	After  uint64
}

type InAddFriend struct {
	ID       uint64
	Username string
}

type InRemoveFriend struct {
	ID       uint64
	Username string
}

type InSendMessage struct {
	ID       uint64
	Receiver string
	Content  string
}

func (InGetRelations) inputEvent()  {}
func (InGetMessages) inputEvent()   {}
func (InAddFriend) inputEvent()     {}
func (InRemoveFriend) inputEvent()  {}
func (InSendMessage) inputEvent()   {}

// OutputEvent answers the InputEvent of the same Id.
type OutputEvent interface {
	EventID() uint64
}

type OutGetRelations struct {
	ID        uint64
	Relations []packet.Relation
}

type OutGetMessages struct {
	ID       uint64
	Messages []packet.Message
}

type OutAddFriend struct {
	ID      uint64
	Success bool
}

type OutRemoveFriend struct{ ID uint64 }
type OutSendMessage struct{ ID uint64 }

func (e OutGetRelations) EventID() uint64 { return e.ID }
func (e OutGetMessages) EventID() uint64  { return e.ID }
func (e OutAddFriend) EventID() uint64    { return e.ID }
func (e OutRemoveFriend) EventID() uint64 { return e.ID }
func (e OutSendMessage) EventID() uint64  { return e.ID }
