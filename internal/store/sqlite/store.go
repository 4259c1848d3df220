// Package sqlite implements store.Store on top of database/sql and a
// pure-Go SQLite driver (modernc.org/sqlite), matching the single
// relational database file spec.md §6 calls for.
//
// The query and schema style here follows the database/sql idiom seen
// across the reference corpus (open a *sql.DB behind a driver import,
// prepare query strings inline, scan into typed structs); the schema
// itself and the boolean-as-BLOB convention are carried over verbatim
// from the original Python implementation's db_handler.py so the wire
// format promise in spec.md §6 ("Boolean columns follow the 0xFF/0x00
// convention") holds for real.
package sqlite

import (
	"context"
	"crypto/sha512"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/objectiveSquid/chatwire/internal/config"
	"github.com/objectiveSquid/chatwire/internal/packet"
	"github.com/objectiveSquid/chatwire/internal/store"
)

var (
	sqliteTrue  = []byte{0xFF}
	sqliteFalse = []byte{0x00}
)

func boolToBlob(b bool) []byte {
	if b {
		return sqliteTrue
	}
	return sqliteFalse
}

func blobToBool(b []byte) bool {
	return len(b) > 0 && b[0] == 0xFF
}

// Store implements store.Store backed by a single SQLite database file.
type Store struct {
	db   *sql.DB
	cfg  config.ServerDatabaseConfig
	rand *rand.Rand
}

// Open creates the database file's parent directory if needed and
// opens a connection pool against it, using the settings in cfg for
// token generation and username bounds.
func Open(cfg config.ServerDatabaseConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Filepath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Filepath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", cfg.Filepath, err)
	}
	// A single-file SQLite database only tolerates one writer at a
	// time; the server's own per-call mutex discipline (spec §5) is
	// enforced here by capping the pool to one connection rather than
	// wrapping every call in an explicit sync.Mutex.
	db.SetMaxOpenConns(1)

	if cfg.ConnectTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectTimeout)*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("sqlite: connecting to %s: %w", cfg.Filepath, err)
		}
	}

	return &Store{db: db, cfg: cfg, rand: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT NOT NULL,
			token_hash BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			sender_username TEXT NOT NULL,
			receiver_username TEXT NOT NULL,
			content TEXT NOT NULL,
			time_sent INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS relations (
			first_user TEXT NOT NULL,
			secondary_user TEXT NOT NULL,
			first_is_friend BLOB NOT NULL,
			secondary_is_friend BLOB NOT NULL,
			secondary_is_blocked BLOB NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Store) AddUser(ctx context.Context, username string) (string, store.AddUserResult, error) {
	if len(username) < s.cfg.MinUsernameLength {
		return "", store.AddUserTooShort, nil
	}
	if len(username) > s.cfg.MaxUsernameLength {
		return "", store.AddUserTooLong, nil
	}

	token := s.generateToken()
	hash := sha512.Sum512([]byte(token))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, token_hash) VALUES (?, ?)`,
		username, hash[:],
	)
	if err != nil {
		return "", store.AddUserSuccess, fmt.Errorf("sqlite: add user: %w", err)
	}
	return token, store.AddUserSuccess, nil
}

func (s *Store) generateToken() string {
	charset := s.cfg.TokenCharset
	buf := make([]byte, s.cfg.TokenLength)
	for i := range buf {
		buf[i] = charset[s.rand.Intn(len(charset))]
	}
	return string(buf)
}

func (s *Store) CheckToken(ctx context.Context, token string) (bool, string, error) {
	hash := sha512.Sum512([]byte(token))

	var username string
	err := s.db.QueryRowContext(ctx,
		`SELECT username FROM users WHERE token_hash = ?`, hash[:],
	).Scan(&username)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("sqlite: check token: %w", err)
	}
	return true, username, nil
}

func (s *Store) CheckUserExists(ctx context.Context, username string) (bool, error) {
	var discard string
	err := s.db.QueryRowContext(ctx,
		`SELECT username FROM users WHERE username = ?`, username,
	).Scan(&discard)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: check user exists: %w", err)
	}
	return true, nil
}

func (s *Store) GetRelation(ctx context.Context, a, b string) (packet.Relation, error) {
	var firstFriend, secondaryFriend, blocked []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT first_is_friend, secondary_is_friend, secondary_is_blocked
		 FROM relations WHERE first_user = ? AND secondary_user = ?`, a, b,
	).Scan(&firstFriend, &secondaryFriend, &blocked)
	if err == sql.ErrNoRows {
		return packet.Relation{}, store.ErrNotFound
	}
	if err != nil {
		return packet.Relation{}, fmt.Errorf("sqlite: get relation: %w", err)
	}
	return packet.Relation{
		FirstUsername:      a,
		SecondaryUsername:  b,
		FirstIsFriend:      blobToBool(firstFriend),
		SecondaryIsFriend:  blobToBool(secondaryFriend),
		SecondaryIsBlocked: blobToBool(blocked),
	}, nil
}

func (s *Store) GetAllRelations(ctx context.Context, user string) ([]packet.Relation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT secondary_user, first_is_friend, secondary_is_friend, secondary_is_blocked
		 FROM relations WHERE first_user = ?`, user,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get all relations: %w", err)
	}
	defer rows.Close()

	var relations []packet.Relation
	for rows.Next() {
		var secondary string
		var firstFriend, secondaryFriend, blocked []byte
		if err := rows.Scan(&secondary, &firstFriend, &secondaryFriend, &blocked); err != nil {
			return nil, fmt.Errorf("sqlite: scan relation: %w", err)
		}
		relations = append(relations, packet.Relation{
			FirstUsername:      user,
			SecondaryUsername:  secondary,
			FirstIsFriend:      blobToBool(firstFriend),
			SecondaryIsFriend:  blobToBool(secondaryFriend),
			SecondaryIsBlocked: blobToBool(blocked),
		})
	}
	return relations, rows.Err()
}

// AddFriend and RemoveFriend share the same mirror-row upsert shape;
// only the friend argument differs between them (true to add, false to
// remove).
func (s *Store) AddFriend(ctx context.Context, a, b string) (bool, error) {
	return s.setFriendship(ctx, a, b, true)
}

func (s *Store) RemoveFriend(ctx context.Context, a, b string) (bool, error) {
	return s.setFriendship(ctx, a, b, false)
}

func (s *Store) setFriendship(ctx context.Context, a, b string, friend bool) (bool, error) {
	if a == b {
		return false, nil
	}
	exists, err := s.CheckUserExists(ctx, b)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: begin friendship tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertFriendFlag(ctx, tx, a, b, true, friend); err != nil {
		return false, err
	}
	if err := upsertFriendFlag(ctx, tx, b, a, false, friend); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: commit friendship tx: %w", err)
	}
	return true, nil
}

// upsertFriendFlag sets first_is_friend (isFirstSlot=true) or
// secondary_is_friend (isFirstSlot=false) on the (first, secondary) row,
// inserting it with the remaining booleans false if it doesn't exist yet.
func upsertFriendFlag(ctx context.Context, tx *sql.Tx, first, secondary string, isFirstSlot, value bool) error {
	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM relations WHERE first_user = ? AND secondary_user = ?`, first, secondary,
	).Scan(&exists)

	column := "secondary_is_friend"
	if isFirstSlot {
		column = "first_is_friend"
	}

	if err == sql.ErrNoRows {
		firstFlag, secondaryFlag := sqliteFalse, sqliteFalse
		if isFirstSlot {
			firstFlag = boolToBlob(value)
		} else {
			secondaryFlag = boolToBlob(value)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO relations (first_user, secondary_user, first_is_friend, secondary_is_friend, secondary_is_blocked)
			 VALUES (?, ?, ?, ?, ?)`,
			first, secondary, firstFlag, secondaryFlag, sqliteFalse,
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert relation row: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("sqlite: lookup relation row: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE relations SET %s = ? WHERE first_user = ? AND secondary_user = ?`, column),
		boolToBlob(value), first, secondary,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update relation row: %w", err)
	}
	return nil
}

func (s *Store) AddMessage(ctx context.Context, sender, receiver, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (sender_username, receiver_username, content, time_sent) VALUES (?, ?, ?, ?)`,
		sender, receiver, content, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: add message: %w", err)
	}
	return nil
}

func (s *Store) GetMessages(ctx context.Context, a, b string, timeBackSeconds uint64) ([]packet.Message, error) {
	cutoff := time.Now().Unix() - int64(timeBackSeconds)

	rows, err := s.db.QueryContext(ctx,
		`SELECT sender_username, receiver_username, time_sent, content FROM messages
		 WHERE sender_username IN (?, ?) AND receiver_username IN (?, ?) AND time_sent >= ?
		 ORDER BY time_sent ASC`,
		a, b, a, b, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get messages: %w", err)
	}
	defer rows.Close()

	var messages []packet.Message
	for rows.Next() {
		var m packet.Message
		var timeSent int64
		if err := rows.Scan(&m.Sender, &m.Receiver, &timeSent, &m.Content); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		m.TimeSent = uint64(timeSent)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
