package protocol

import "errors"

// ErrConnectionReset is returned by Decode when the peer closes the
// connection — a zero-byte read on a nonzero request — distinct from
// an ordinary io.EOF so sessions can skip sending a Quit in response.
var ErrConnectionReset = errors.New("protocol: connection reset by peer")

// IsConnectionReset reports whether err is (or wraps) ErrConnectionReset.
func IsConnectionReset(err error) bool {
	return errors.Is(err, ErrConnectionReset)
}
