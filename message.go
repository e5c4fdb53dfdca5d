package dbus

import (
	"encoding/binary"
	"fmt"
)

// Message is a complete D-Bus message: a Header plus an opaque body. Body
// holds the body's values in order (one element for a one-value body) and
// is nil for a message with no body, both when sending and on read.
type Message struct {
	Header Header
	Body   []Value
}

// MarshalMessage marshals msg in its header's declared byte order and
// returns the encoded bytes. If msg.Header.Signature is empty and a body
// is present, the signature is filled in from the body's concatenated
// signatures before marshaling.
func MarshalMessage(msg *Message) ([]byte, error) {
	h := msg.Header
	if h.Signature == "" && len(msg.Body) > 0 {
		h.Signature = signatureOf(msg.Body)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if !h.LittleEndian {
		order = binary.BigEndian
	}
	w := newByteWriter(256, order)
	bodyLenOffset, err := h.marshal(w)
	if err != nil {
		return nil, fmt.Errorf("dbus: marshal header: %w", err)
	}

	bodyStart := w.offset()
	Write(w, msg.Body...)
	w.setUint32At(bodyLenOffset, uint32(w.offset()-bodyStart))

	return w.bytes(), nil
}

// writeMessage marshals msg for transmission over a live session: outbound
// messages are always sent in little-endian order.
func writeMessage(msg *Message) ([]byte, error) {
	msg.Header.LittleEndian = true
	return MarshalMessage(msg)
}

// UnmarshalMessage decodes one complete message from buf, which must
// contain at least as many bytes as the message occupies, and returns the
// message and the number of bytes consumed.
func UnmarshalMessage(buf []byte) (*Message, int, error) {
	return decodeMessage(buf)
}

// readMessageBody decodes msg.Body from r under the signature declared in
// msg.Header.Signature. r must be positioned at the first byte of the
// body (immediately after the header's trailing pad-to-8) and its
// alignment must already be rebased to that position via markStart.
func readMessageBody(r *byteReader, msg *Message) error {
	if msg.Header.Signature == "" {
		msg.Body = nil
		return nil
	}
	vals, err := Read(r, msg.Header.Signature)
	if err != nil {
		return err
	}
	msg.Body = vals
	return nil
}

// decodeMessage decodes one full message (header + body) from buf, which
// must contain at least one complete message starting at buf[0]. It
// returns the message and the number of bytes consumed.
func decodeMessage(buf []byte) (*Message, int, error) {
	r := newByteReader(buf, binary.LittleEndian)
	msg := &Message{}
	if err := unmarshalHeader(r, &msg.Header); err != nil {
		return nil, 0, err
	}
	bodyStart := r.pos
	bodyEnd := bodyStart + int(msg.Header.bodyLen)
	if bodyEnd > len(buf) {
		return nil, 0, errShortBuffer
	}

	bodyReader := newByteReader(buf[bodyStart:bodyEnd], r.order)
	if err := readMessageBody(bodyReader, msg); err != nil {
		// Per the unmarshal error policy, a header that parsed but whose
		// body failed to decode is dropped; the cursor still advances to
		// the end of the message using the already-known body length.
		return nil, bodyEnd, err
	}
	return msg, bodyEnd, nil
}

// peekMessageLen reports how many bytes the next complete message in buf
// occupies, computed from the 16-byte prologue alone. ok is false while
// buf holds less than the whole message: with fewer than 16 bytes n is 0,
// otherwise n is the full message length.
func peekMessageLen(buf []byte) (n int, ok bool, err error) {
	if len(buf) < headPrologueSize {
		return 0, false, nil
	}
	var order binary.ByteOrder
	switch buf[0] {
	case littleEndian:
		order = binary.LittleEndian
	case bigEndian:
		order = binary.BigEndian
	default:
		return 0, false, fmt.Errorf("dbus: invalid endian byte %#x", buf[0])
	}
	bodyLen := order.Uint32(buf[4:8])
	fieldsLen := order.Uint32(buf[12:16])
	headLen := headPrologueSize + int(fieldsLen)
	if pad := headLen % 8; pad != 0 {
		headLen += 8 - pad
	}
	total := headLen + int(bodyLen)
	if len(buf) < total {
		return total, false, nil
	}
	return total, true, nil
}
