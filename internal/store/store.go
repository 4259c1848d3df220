// Package store defines the persistence contract consumed by the
// server session: users, token hashes, symmetric friend relations, and
// messages. Any embedded relational store that satisfies Store
// suffices — internal/store/sqlite provides the reference
// implementation backed by modernc.org/sqlite.
package store

import (
	"context"
	"errors"

	"github.com/objectiveSquid/chatwire/internal/packet"
)

// AddUserResult classifies the outcome of AddUser.
type AddUserResult int

const (
	AddUserSuccess AddUserResult = iota
	AddUserTooShort
	AddUserTooLong
)

func (r AddUserResult) String() string {
	switch r {
	case AddUserSuccess:
		return "success"
	case AddUserTooShort:
		return "username_too_short"
	case AddUserTooLong:
		return "username_too_long"
	default:
		return "unknown"
	}
}

// ErrNotFound is returned by GetRelation when no row matches.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface consumed by the server session.
// Implementations must be safe for concurrent use by multiple sessions.
type Store interface {
	// EnsureTables idempotently creates the schema if it doesn't exist.
	EnsureTables(ctx context.Context) error

	// AddUser provisions a new account. On success, the plaintext token
	// is returned exactly once and never stored — only its SHA-512 is
	// persisted. min/max username length is enforced here.
	AddUser(ctx context.Context, username string) (token string, result AddUserResult, err error)

	// CheckToken reports whether token hashes to a known user, and if
	// so which username it belongs to.
	CheckToken(ctx context.Context, token string) (ok bool, username string, err error)

	// CheckUserExists reports whether username has an account.
	CheckUserExists(ctx context.Context, username string) (bool, error)

	// GetAllRelations returns every relation row whose first username
	// is user.
	GetAllRelations(ctx context.Context, user string) ([]packet.Relation, error)

	// GetRelation returns the single relation row (a, b), or
	// ErrNotFound if none exists.
	GetRelation(ctx context.Context, a, b string) (packet.Relation, error)

	// AddFriend marks a as a friend of b (and the mirror row b→a),
	// creating missing rows with the remaining booleans false. Returns
	// false without effect if a == b or b does not exist.
	AddFriend(ctx context.Context, a, b string) (bool, error)

	// RemoveFriend clears the mirrored friendship booleans on (a, b)
	// and (b, a). Same preconditions as AddFriend.
	RemoveFriend(ctx context.Context, a, b string) (bool, error)

	// AddMessage appends an immutable message with time_sent = now().
	AddMessage(ctx context.Context, sender, receiver, content string) error

	// GetMessages returns every message between a and b (in either
	// direction) sent within the last timeBackSeconds. The caller (the
	// session) is responsible for mapping a client-supplied "after=0"
	// to a sufficiently large value to mean "all of history" — a
	// literal 0 here means "nothing older than right now" (spec §9).
	GetMessages(ctx context.Context, a, b string, timeBackSeconds uint64) ([]packet.Message, error)

	// Close releases the underlying connection.
	Close() error
}
