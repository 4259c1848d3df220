// Package codec provides the low-level binary encoding helpers shared by
// every packet body in internal/packet.
//
// It is the direct descendant of the teacher's BinaryCodec: that type
// encoded a single fixed RPCMessage envelope (length-prefixed method
// name, length-prefixed payload, length-prefixed error string). Here
// the same length-prefix-then-copy primitives are generalized into a
// small Writer/Reader pair so each packet variant can compose its own
// body layout (§4.2 of the wire protocol) out of the same building
// blocks instead of repeating binary.BigEndian boilerplate.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Writer accumulates a packet body into a byte buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated body.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// PutUint8 appends a single byte.
func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// PutBool appends the wire boolean convention: 0xFF for true, 0x00 for false.
func (w *Writer) PutBool(v bool) {
	if v {
		w.PutUint8(0xFF)
	} else {
		w.PutUint8(0x00)
	}
}

// PutUint16 appends a big-endian uint16.
func (w *Writer) PutUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// PutUint64 appends a big-endian uint64.
func (w *Writer) PutUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// PutString16 appends a uint16 length prefix followed by the UTF-8 bytes
// of s. Used for every "u16 len ‖ bytes" field in §4.2.
func (w *Writer) PutString16(s string) {
	w.PutUint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// PutString64 appends a uint64 length prefix followed by the UTF-8 bytes
// of s. Used for message content, which may be arbitrarily long.
func (w *Writer) PutString64(s string) {
	w.PutUint64(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// PutRaw appends raw bytes with no length prefix — used for fields that
// fill the remainder of the body (e.g. an authentication token).
func (w *Writer) PutRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reader consumes a packet body sequentially, mirroring Writer's layout.
type Reader struct {
	buf []byte
}

// NewReader wraps data for sequential decoding.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Len reports how many bytes remain unconsumed.
func (r *Reader) Len() int {
	return len(r.buf)
}

// Uint8 consumes and returns a single byte.
func (r *Reader) Uint8() (uint8, error) {
	if len(r.buf) < 1 {
		return 0, fmt.Errorf("codec: unexpected end of body reading uint8")
	}
	v := r.buf[0]
	r.buf = r.buf[1:]
	return v, nil
}

// Bool consumes one byte and decodes it per the 0xFF/0x00 convention.
// Any other value is a protocol violation and is rejected, not coerced.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0xFF:
		return true, nil
	case 0x00:
		return false, nil
	default:
		return false, fmt.Errorf("codec: invalid boolean byte 0x%02x", v)
	}
}

// Uint16 consumes a big-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if len(r.buf) < 2 {
		return 0, fmt.Errorf("codec: unexpected end of body reading uint16")
	}
	v := binary.BigEndian.Uint16(r.buf[:2])
	r.buf = r.buf[2:]
	return v, nil
}

// Uint64 consumes a big-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	if len(r.buf) < 8 {
		return 0, fmt.Errorf("codec: unexpected end of body reading uint64")
	}
	v := binary.BigEndian.Uint64(r.buf[:8])
	r.buf = r.buf[8:]
	return v, nil
}

// String16 consumes a uint16 length prefix and that many UTF-8 bytes.
func (r *Reader) String16() (string, error) {
	n, err := r.Uint16()
	if err != nil {
		return "", err
	}
	return r.takeString(int(n))
}

// String64 consumes a uint64 length prefix and that many UTF-8 bytes.
func (r *Reader) String64() (string, error) {
	n, err := r.Uint64()
	if err != nil {
		return "", err
	}
	return r.takeString(int(n))
}

// Rest consumes and returns whatever remains, decoded as UTF-8 — used
// for fields (like SendMessage's content, or an auth token) that fill
// the remainder of the body instead of carrying their own length prefix.
func (r *Reader) Rest() string {
	s := string(r.buf)
	r.buf = nil
	return s
}

func (r *Reader) takeString(n int) (string, error) {
	if len(r.buf) < n {
		return "", fmt.Errorf("codec: unexpected end of body reading %d-byte string", n)
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s, nil
}
