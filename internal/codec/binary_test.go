package codec

import "testing"

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutUint16(7)
	w.PutString16("alice")
	w.PutBool(true)
	w.PutBool(false)
	w.PutUint64(1234567890)
	w.PutString64("hello world")

	r := NewReader(w.Bytes())

	if v, err := r.Uint16(); err != nil || v != 7 {
		t.Fatalf("Uint16: got %d, %v", v, err)
	}
	if s, err := r.String16(); err != nil || s != "alice" {
		t.Fatalf("String16: got %q, %v", s, err)
	}
	if b, err := r.Bool(); err != nil || b != true {
		t.Fatalf("Bool: got %v, %v", b, err)
	}
	if b, err := r.Bool(); err != nil || b != false {
		t.Fatalf("Bool: got %v, %v", b, err)
	}
	if v, err := r.Uint64(); err != nil || v != 1234567890 {
		t.Fatalf("Uint64: got %d, %v", v, err)
	}
	if s, err := r.String64(); err != nil || s != "hello world" {
		t.Fatalf("String64: got %q, %v", s, err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected no remaining bytes, got %d", r.Len())
	}
}

func TestBoolRejectsInvalidByte(t *testing.T) {
	r := NewReader([]byte{0x42})
	if _, err := r.Bool(); err == nil {
		t.Fatal("expected error decoding invalid boolean byte, got nil")
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{0x00, 0x05, 'a', 'b'})
	if _, err := r.String16(); err == nil {
		t.Fatal("expected error reading truncated string, got nil")
	}
}
