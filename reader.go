package dbus

import (
	"encoding/binary"
	"fmt"
)

// errShortBuffer is returned when a read would run past the end of the
// reader's view.
var errShortBuffer = fmt.Errorf("dbus: unexpected end of buffer")

// byteReader is a cursor over an immutable byte slice. Alignment is always
// measured relative to the start of the current view: callers that begin
// decoding a new message must call markStart so alignment restarts at 0,
// per the D-Bus requirement that alignment is relative to the start of
// the message, not the start of the underlying connection buffer.
type byteReader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// newByteReader returns a reader over buf using the given byte order.
func newByteReader(buf []byte, order binary.ByteOrder) *byteReader {
	return &byteReader{buf: buf, order: order}
}

// markStart rebases the view so offset 0 is the current cursor position.
// Subsequent alignment calls are measured from here.
func (r *byteReader) markStart() {
	r.buf = r.buf[r.pos:]
	r.pos = 0
}

// remaining returns the number of unread bytes in the view.
func (r *byteReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *byteReader) align(n int) error {
	for r.pos%n != 0 {
		if r.pos >= len(r.buf) {
			return errShortBuffer
		}
		r.pos++
	}
	return nil
}

func (r *byteReader) need(n int) error {
	if r.remaining() < n {
		return errShortBuffer
	}
	return nil
}

func (r *byteReader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readBool() (bool, error) {
	v, err := r.readUint32()
	return v != 0, err
}

func (r *byteReader) readInt16() (int16, error) {
	v, err := r.readUint16()
	return int16(v), err
}

func (r *byteReader) readUint16() (uint16, error) {
	if err := r.align(2); err != nil {
		return 0, err
	}
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) readInt32() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}

func (r *byteReader) readUint32() (uint32, error) {
	if err := r.align(4); err != nil {
		return 0, err
	}
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) readInt64() (int64, error) {
	v, err := r.readUint64()
	return int64(v), err
}

func (r *byteReader) readUint64() (uint64, error) {
	if err := r.align(8); err != nil {
		return 0, err
	}
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) readFloat64() (float64, error) {
	v, err := r.readUint64()
	return float64frombits(v), err
}

func (r *byteReader) readUnixFD() (uint32, error) {
	return r.readUint32()
}

// readString reads a uint32 length, decodes that many bytes as UTF-8, and
// skips the trailing NUL.
func (r *byteReader) readString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n) + 1); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n) + 1
	return s, nil
}

func (r *byteReader) readObjectPath() (string, error) {
	return r.readString()
}

// readSignature reads a single-byte length, then that many bytes, then a
// trailing NUL.
func (r *byteReader) readSignature() (string, error) {
	ln, err := r.readByte()
	if err != nil {
		return "", err
	}
	if err := r.need(int(ln) + 1); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(ln)])
	r.pos += int(ln) + 1
	return s, nil
}

// consumeArray reads a uint32 byte-length, aligns to itemAlign (even for an
// empty array), then calls perItem repeatedly until exactly byteLen bytes
// past the post-alignment point have been consumed, re-aligning to
// itemAlign after each call. It is an error for an item to overshoot the
// declared length.
func (r *byteReader) consumeArray(itemAlign int, perItem func() error) error {
	byteLen, err := r.readUint32()
	if err != nil {
		return err
	}
	if err := r.align(itemAlign); err != nil {
		return err
	}
	start := r.pos
	end := start + int(byteLen)
	if end > len(r.buf) {
		return errShortBuffer
	}
	for r.pos < end {
		if err := perItem(); err != nil {
			return err
		}
		if r.pos > end {
			return fmt.Errorf("dbus: array element overran declared length")
		}
		if r.pos < end {
			if err := r.align(itemAlign); err != nil {
				return err
			}
		}
	}
	return nil
}
