package dbus

import (
	"encoding/binary"
	"fmt"
)

// MessageType identifies the kind of a D-Bus message.
type MessageType byte

const (
	TypeInvalid MessageType = iota
	TypeMethodCall
	TypeMethodReturn
	TypeError
	TypeSignal
)

// Flag is a single bit of the message flag set.
type Flag byte

const (
	FlagNoReplyExpected Flag = 1 << iota
	FlagNoAutoStart
	FlagAllowInteractiveAuthorization
)

// Flags is a bitwise-OR of Flag values.
type Flags byte

func (f Flags) has(bit Flag) bool { return f&Flags(bit) != 0 }

const (
	littleEndian          = 'l'
	bigEndian             = 'B'
	protocolVersion  byte = 1
	headPrologueSize      = 16
)

// Header field codes, per the D-Bus specification.
const (
	fieldPath byte = 1 + iota
	fieldInterface
	fieldMember
	fieldErrorName
	fieldReplySerial
	fieldDestination
	fieldSender
	fieldSignature
	fieldUnixFDs
	fieldMax
)

// fieldValueCode records the fixed value type for a header field code.
func fieldValueCode(code byte) (byte, bool) {
	switch code {
	case fieldPath:
		return 'o', true
	case fieldInterface, fieldMember, fieldErrorName, fieldDestination, fieldSender:
		return 's', true
	case fieldReplySerial, fieldUnixFDs:
		return 'u', true
	case fieldSignature:
		return 'g', true
	default:
		return 0, false
	}
}

// Header is the fixed-layout prefix of a D-Bus message.
type Header struct {
	LittleEndian bool
	Type         MessageType
	Flags        Flags
	Serial       uint32

	Path           string
	Interface      string
	Member         string
	ErrorName      string
	ReplySerial    uint32
	HasReplySerial bool
	Destination    string
	Sender         string
	Signature      Signature
	UnixFDs        uint32
	HasUnixFDs     bool

	bodyLen uint32
}

func (h *Header) order() binary.ByteOrder {
	if h.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Marshal encodes h alone (no body) in its own declared byte order,
// padded to an 8-byte boundary at the end, per the wire layout in the
// spec. BodyLen is written as whatever h.bodyLen currently holds; callers
// that only want to round-trip a header (as opposed to a full message)
// typically leave it at its zero value.
func (h *Header) Marshal() ([]byte, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if !h.LittleEndian {
		order = binary.BigEndian
	}
	w := newByteWriter(64, order)
	_, err := h.marshal(w)
	if err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

// UnmarshalHeader decodes a Header from the start of buf.
func UnmarshalHeader(buf []byte) (*Header, error) {
	r := newByteReader(buf, binary.LittleEndian)
	h := &Header{}
	if err := unmarshalHeader(r, h); err != nil {
		return nil, err
	}
	return h, nil
}

// marshal encodes the header, including its pad-to-8 at the end, onto w.
// It returns the byte offset within w where the body-length uint32 lives,
// so the caller can patch it after the body is written.
func (h *Header) marshal(w *byteWriter) (bodyLenOffset int, err error) {
	if h.Type < TypeMethodCall || h.Type > TypeSignal {
		return 0, fmt.Errorf("dbus: invalid message type %d", h.Type)
	}

	endianByte := byte(littleEndian)
	if !h.LittleEndian {
		endianByte = bigEndian
	}
	w.writeByte(endianByte)
	w.writeByte(byte(h.Type))
	w.writeByte(byte(h.Flags))
	w.writeByte(protocolVersion)

	bodyLenOffset = w.offset()
	w.writeUint32(h.bodyLen)
	w.writeUint32(h.Serial)

	fieldsLenOffset := w.offset()
	w.writeUint32(0)
	fieldsStart := w.offset()

	writeField := func(code byte, v Value) {
		w.align(8)
		w.writeByte(code)
		variant := NewVariant(v)
		variant.write(w)
	}
	if h.Path != "" {
		writeField(fieldPath, ObjectPath(h.Path))
	}
	if h.Interface != "" {
		writeField(fieldInterface, String(h.Interface))
	}
	if h.Member != "" {
		writeField(fieldMember, String(h.Member))
	}
	if h.ErrorName != "" {
		writeField(fieldErrorName, String(h.ErrorName))
	}
	if h.HasReplySerial {
		writeField(fieldReplySerial, Uint32(h.ReplySerial))
	}
	if h.Destination != "" {
		writeField(fieldDestination, String(h.Destination))
	}
	if h.Sender != "" {
		writeField(fieldSender, String(h.Sender))
	}
	if h.Signature != "" {
		writeField(fieldSignature, SignatureValue(string(h.Signature)))
	}
	if h.HasUnixFDs {
		writeField(fieldUnixFDs, Uint32(h.UnixFDs))
	}

	w.setUint32At(fieldsLenOffset, uint32(w.offset()-fieldsStart))
	w.align(8)
	return bodyLenOffset, nil
}

// unmarshalHeader decodes a header from r. r must be positioned at the
// start of a message; unmarshalHeader does not call r.markStart itself, so
// callers that reuse a streaming buffer must arrange that r's view begins
// exactly at byte 0 of this message before calling unmarshal.
func unmarshalHeader(r *byteReader, h *Header) error {
	if err := r.need(headPrologueSize); err != nil {
		return err
	}
	endianByte, _ := r.readByte()
	switch endianByte {
	case littleEndian:
		h.LittleEndian = true
		r.order = binary.LittleEndian
	case bigEndian:
		h.LittleEndian = false
		r.order = binary.BigEndian
	default:
		return fmt.Errorf("dbus: invalid endian byte %#x", endianByte)
	}

	typeByte, _ := r.readByte()
	if typeByte < 1 || typeByte > 4 {
		return fmt.Errorf("dbus: invalid message type %d", typeByte)
	}
	h.Type = MessageType(typeByte)
	flagsByte, _ := r.readByte()
	h.Flags = Flags(flagsByte)
	if _, err := r.readByte(); err != nil { // protocol version, ignored
		return err
	}

	bodyLen, err := r.readUint32()
	if err != nil {
		return err
	}
	h.bodyLen = bodyLen

	h.Serial, err = r.readUint32()
	if err != nil {
		return err
	}

	fieldsLen, err := r.readUint32()
	if err != nil {
		return err
	}

	h.Path, h.Interface, h.Member, h.ErrorName = "", "", "", ""
	h.Destination, h.Sender = "", ""
	h.Signature = ""
	h.HasReplySerial, h.HasUnixFDs = false, false

	end := r.pos + int(fieldsLen)
	if end > len(r.buf) {
		return errShortBuffer
	}
	for r.pos < end {
		if err := r.align(8); err != nil {
			return err
		}
		if r.pos >= end {
			break
		}
		code, err := r.readByte()
		if err != nil {
			return err
		}
		sigStr, err := r.readSignature()
		if err != nil {
			return err
		}
		node, err := Signature(sigStr).ParseSingle()
		if err != nil {
			return err
		}
		val, err := readValue(r, node)
		if err != nil {
			return err
		}
		if err := applyHeaderField(h, code, val); err != nil {
			return err
		}
	}
	return r.align(8)
}

func applyHeaderField(h *Header, code byte, val Value) error {
	switch code {
	case fieldPath:
		v, ok := val.(objectPathValue)
		if !ok {
			return fmt.Errorf("dbus: header field PATH has wrong type")
		}
		h.Path = string(v)
	case fieldInterface:
		v, ok := val.(stringValue)
		if !ok {
			return fmt.Errorf("dbus: header field INTERFACE has wrong type")
		}
		h.Interface = string(v)
	case fieldMember:
		v, ok := val.(stringValue)
		if !ok {
			return fmt.Errorf("dbus: header field MEMBER has wrong type")
		}
		h.Member = string(v)
	case fieldErrorName:
		v, ok := val.(stringValue)
		if !ok {
			return fmt.Errorf("dbus: header field ERROR_NAME has wrong type")
		}
		h.ErrorName = string(v)
	case fieldReplySerial:
		v, ok := val.(uint32Value)
		if !ok {
			return fmt.Errorf("dbus: header field REPLY_SERIAL has wrong type")
		}
		h.ReplySerial = uint32(v)
		h.HasReplySerial = true
	case fieldDestination:
		v, ok := val.(stringValue)
		if !ok {
			return fmt.Errorf("dbus: header field DESTINATION has wrong type")
		}
		h.Destination = string(v)
	case fieldSender:
		v, ok := val.(stringValue)
		if !ok {
			return fmt.Errorf("dbus: header field SENDER has wrong type")
		}
		h.Sender = string(v)
	case fieldSignature:
		v, ok := val.(signatureValue)
		if !ok {
			return fmt.Errorf("dbus: header field SIGNATURE has wrong type")
		}
		h.Signature = Signature(v)
	case fieldUnixFDs:
		v, ok := val.(uint32Value)
		if !ok {
			return fmt.Errorf("dbus: header field UNIX_FDS has wrong type")
		}
		h.UnixFDs = uint32(v)
		h.HasUnixFDs = true
	default:
		return fmt.Errorf("dbus: unknown header field code %d", code)
	}
	return nil
}

// Equal reports whether h and other are observably equal, including
// endian, flags and every header field.
func (h *Header) Equal(other *Header) bool {
	return h.LittleEndian == other.LittleEndian &&
		h.Type == other.Type &&
		h.Flags == other.Flags &&
		h.Serial == other.Serial &&
		h.Path == other.Path &&
		h.Interface == other.Interface &&
		h.Member == other.Member &&
		h.ErrorName == other.ErrorName &&
		h.HasReplySerial == other.HasReplySerial &&
		h.ReplySerial == other.ReplySerial &&
		h.Destination == other.Destination &&
		h.Sender == other.Sender &&
		h.Signature == other.Signature &&
		h.HasUnixFDs == other.HasUnixFDs &&
		h.UnixFDs == other.UnixFDs
}
