package dbus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := &Message{
		Header: Header{
			Type:        TypeMethodCall,
			Serial:      9,
			Path:        "/a/b",
			Interface:   "com.example.Iface",
			Member:      "DoThing",
			Destination: "com.example.Dest",
		},
		Body: []Value{String("hello"), Uint32(7)},
	}

	buf, err := MarshalMessage(msg)
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}

	got, consumed, err := UnmarshalMessage(buf)
	if err != nil {
		t.Fatalf("UnmarshalMessage() error = %v", err)
	}
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	// The decoded header equals the sent one plus the auto-filled body
	// signature.
	wantHeader := msg.Header
	wantHeader.Signature = "su"
	if !wantHeader.Equal(&got.Header) {
		t.Errorf("header mismatch:\nwant %+v\ngot  %+v", wantHeader, got.Header)
	}
	if diff := cmp.Diff(msg.Body, got.Body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageSignatureAutoFilledFromBody(t *testing.T) {
	msg := &Message{Body: []Value{Int32(1), String("x")}}
	msg.Header.Type = TypeSignal
	msg.Header.Serial = 1

	buf, err := MarshalMessage(msg)
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	got, _, err := UnmarshalMessage(buf)
	if err != nil {
		t.Fatalf("UnmarshalMessage() error = %v", err)
	}
	if got.Header.Signature != "is" {
		t.Errorf("Signature = %q, want %q", got.Header.Signature, "is")
	}
}

func TestMessageNoBody(t *testing.T) {
	msg := &Message{Header: Header{Type: TypeMethodCall, Serial: 1, Path: "/a", Interface: "i", Member: "m"}}
	buf, err := MarshalMessage(msg)
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	got, _, err := UnmarshalMessage(buf)
	if err != nil {
		t.Fatalf("UnmarshalMessage() error = %v", err)
	}
	if got.Body != nil {
		t.Errorf("Body = %v, want nil", got.Body)
	}
}

func TestPeekMessageLenPartialBuffer(t *testing.T) {
	msg := &Message{
		Header: Header{Type: TypeMethodCall, Serial: 1, Path: "/a", Interface: "i", Member: "m"},
		Body:   []Value{String("hello world")},
	}
	buf, err := MarshalMessage(msg)
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}

	if _, ok, err := peekMessageLen(buf[:8]); err != nil || ok {
		t.Errorf("peekMessageLen(prologue-only) = _, %v, %v, want false, nil", ok, err)
	}

	n, ok, err := peekMessageLen(buf[:len(buf)-1])
	if err != nil {
		t.Fatalf("peekMessageLen() error = %v", err)
	}
	if ok {
		t.Errorf("peekMessageLen(truncated) ok = true, want false")
	}
	if n != len(buf) {
		t.Errorf("peekMessageLen(truncated) n = %d, want %d", n, len(buf))
	}

	n, ok, err = peekMessageLen(buf)
	if err != nil || !ok || n != len(buf) {
		t.Errorf("peekMessageLen(full) = %d, %v, %v, want %d, true, nil", n, ok, err, len(buf))
	}
}

func TestPeekMessageLenInvalidEndianByte(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = 'x'
	if _, _, err := peekMessageLen(buf); err == nil {
		t.Error("peekMessageLen() with invalid endian byte error = nil, want error")
	}
}
