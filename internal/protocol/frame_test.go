package protocol

import (
	"bytes"
	"testing"
)

var testWidths = Widths{IDBytes: 4, TypeBytes: 2, LengthBytes: 4}

func TestEncodeDecode(t *testing.T) {
	header := Header{ID: 12345, Type: 100, BodyLen: 11}
	body := []byte("hello world")

	var buf bytes.Buffer
	if err := Encode(&buf, testWidths, header, body); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decodedHeader, decodedBody, err := Decode(&buf, testWidths)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decodedHeader.ID != header.ID {
		t.Errorf("ID mismatch: got %d, want %d", decodedHeader.ID, header.ID)
	}
	if decodedHeader.Type != header.Type {
		t.Errorf("Type mismatch: got %d, want %d", decodedHeader.Type, header.Type)
	}
	if decodedHeader.BodyLen != header.BodyLen {
		t.Errorf("BodyLen mismatch: got %d, want %d", decodedHeader.BodyLen, header.BodyLen)
	}
	if !bytes.Equal(decodedBody, body) {
		t.Errorf("Body mismatch: got %s, want %s", decodedBody, body)
	}
}

func TestEncodeDecodeEmptyBody(t *testing.T) {
	header := Header{ID: 1, Type: 200}
	var buf bytes.Buffer
	if err := Encode(&buf, testWidths, header, nil); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decodedHeader, decodedBody, err := Decode(&buf, testWidths)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decodedBody) != 0 {
		t.Errorf("expected empty body, got %d bytes", len(decodedBody))
	}
	if decodedHeader.BodyLen != 0 {
		t.Errorf("expected BodyLen 0, got %d", decodedHeader.BodyLen)
	}
}

func TestDecodeConnectionReset(t *testing.T) {
	var buf bytes.Buffer // empty: zero bytes available
	_, _, err := Decode(&buf, testWidths)
	if !IsConnectionReset(err) {
		t.Fatalf("expected ErrConnectionReset, got %v", err)
	}
}

func TestDecodeTruncatedBody(t *testing.T) {
	header := Header{ID: 1, Type: 100, BodyLen: 20}
	var buf bytes.Buffer
	// Encode a header claiming 20 bytes of body, but only write 5.
	if err := Encode(&buf, testWidths, header, make([]byte, 20)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	truncated := buf.Bytes()[:testWidths.HeaderSize()+5]

	_, _, err := Decode(bytes.NewReader(truncated), testWidths)
	if !IsConnectionReset(err) {
		t.Fatalf("expected ErrConnectionReset for truncated body, got %v", err)
	}
}

func TestValueTooWideForField(t *testing.T) {
	narrow := Widths{IDBytes: 1, TypeBytes: 1, LengthBytes: 1}
	header := Header{ID: 1000, Type: 1} // 1000 doesn't fit in 1 byte
	var buf bytes.Buffer
	if err := Encode(&buf, narrow, header, nil); err == nil {
		t.Fatal("expected error encoding an id too large for the configured width")
	}
}
