package dbus

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestByteReaderScalarRoundTrip(t *testing.T) {
	w := newByteWriter(0, binary.LittleEndian)
	w.writeByte(7)
	w.writeInt16(-5)
	w.writeUint32(0xdeadbeef)
	w.writeInt64(-1)
	w.writeFloat64(3.5)
	w.writeString("hello")

	r := newByteReader(w.bytes(), binary.LittleEndian)

	b, err := r.readByte()
	if err != nil || b != 7 {
		t.Fatalf("readByte() = %d, %v, want 7, nil", b, err)
	}
	n16, err := r.readInt16()
	if err != nil || n16 != -5 {
		t.Fatalf("readInt16() = %d, %v, want -5, nil", n16, err)
	}
	u32, err := r.readUint32()
	if err != nil || u32 != 0xdeadbeef {
		t.Fatalf("readUint32() = %#x, %v, want 0xdeadbeef, nil", u32, err)
	}
	i64, err := r.readInt64()
	if err != nil || i64 != -1 {
		t.Fatalf("readInt64() = %d, %v, want -1, nil", i64, err)
	}
	f64, err := r.readFloat64()
	if err != nil || f64 != 3.5 {
		t.Fatalf("readFloat64() = %v, %v, want 3.5, nil", f64, err)
	}
	s, err := r.readString()
	if err != nil || s != "hello" {
		t.Fatalf("readString() = %q, %v, want %q, nil", s, err, "hello")
	}
	if r.remaining() != 0 {
		t.Errorf("remaining() = %d, want 0", r.remaining())
	}
}

func TestByteReaderShortBuffer(t *testing.T) {
	r := newByteReader([]byte{1, 2}, binary.LittleEndian)
	if _, err := r.readUint32(); err != errShortBuffer {
		t.Errorf("readUint32() err = %v, want errShortBuffer", err)
	}
}

func TestByteReaderMarkStart(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff, 1, 0, 0, 0}
	r := newByteReader(buf, binary.LittleEndian)
	r.pos = 3
	r.markStart()

	v, err := r.readUint32()
	if err != nil || v != 1 {
		t.Fatalf("readUint32() after markStart = %d, %v, want 1, nil", v, err)
	}
}

func TestConsumeArrayEmpty(t *testing.T) {
	w := newByteWriter(0, binary.LittleEndian)
	w.writeUint32(0) // byte length
	w.align(4)       // alignment still applied for an empty array

	r := newByteReader(w.bytes(), binary.LittleEndian)
	var calls int
	err := r.consumeArray(4, func() error { calls++; return nil })
	if err != nil {
		t.Fatalf("consumeArray() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("perItem called %d times, want 0", calls)
	}
}

func TestConsumeArrayOfUint32(t *testing.T) {
	w := newByteWriter(0, binary.LittleEndian)
	lenOff := w.offset()
	w.writeUint32(0)
	w.align(4)
	start := w.offset()
	w.writeUint32(1)
	w.writeUint32(2)
	w.writeUint32(3)
	w.setUint32At(lenOff, uint32(w.offset()-start))

	r := newByteReader(w.bytes(), binary.LittleEndian)
	var got []uint32
	err := r.consumeArray(4, func() error {
		v, err := r.readUint32()
		got = append(got, v)
		return err
	})
	if err != nil {
		t.Fatalf("consumeArray() error = %v", err)
	}
	want := []uint32{1, 2, 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded array mismatch (-want +got):\n%s", diff)
	}
}
