package dbus

import (
	"testing"
)

// S4: a method-call header round-trips through Marshal/Unmarshal in both
// byte orders.
func TestHeaderRoundTripBothEndians(t *testing.T) {
	for _, littleEndian := range []bool{true, false} {
		h := &Header{
			LittleEndian: littleEndian,
			Type:         TypeMethodCall,
			Flags:        Flags(FlagNoReplyExpected),
			Serial:       42,
			Path:         "/org/freedesktop/DBus",
			Interface:    "org.freedesktop.DBus",
			Member:       "Hello",
			Destination:  "org.freedesktop.DBus",
			Sender:       ":1.1",
			Signature:    "s",
		}

		buf, err := h.Marshal()
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		got, err := UnmarshalHeader(buf)
		if err != nil {
			t.Fatalf("UnmarshalHeader() error = %v", err)
		}
		if !h.Equal(got) {
			t.Errorf("header mismatch for littleEndian=%v:\nwant %+v\ngot  %+v", littleEndian, h, got)
		}
	}
}

func TestHeaderMarshalRejectsInvalidType(t *testing.T) {
	h := &Header{Type: TypeInvalid}
	if _, err := h.Marshal(); err == nil {
		t.Error("Marshal() with TypeInvalid error = nil, want error")
	}
	h2 := &Header{Type: MessageType(5)}
	if _, err := h2.Marshal(); err == nil {
		t.Error("Marshal() with out-of-range type error = nil, want error")
	}
}

func TestUnmarshalHeaderRejectsInvalidTypeByte(t *testing.T) {
	h := &Header{Type: TypeSignal, Serial: 1}
	buf, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	buf[1] = 0xff // corrupt the type byte
	if _, err := UnmarshalHeader(buf); err == nil {
		t.Error("UnmarshalHeader() with corrupt type byte error = nil, want error")
	}
}

func TestHeaderEqualObservesEveryField(t *testing.T) {
	base := Header{Type: TypeSignal, Serial: 1, Path: "/a", Interface: "i", Member: "m"}
	other := base
	if !base.Equal(&other) {
		t.Fatal("identical headers compared unequal")
	}

	other.Sender = ":1.2"
	if base.Equal(&other) {
		t.Error("headers differing only in Sender compared equal")
	}
}

func TestHeaderFieldValueCode(t *testing.T) {
	tt := map[byte]byte{
		fieldPath:        'o',
		fieldInterface:   's',
		fieldMember:      's',
		fieldErrorName:   's',
		fieldReplySerial: 'u',
		fieldDestination: 's',
		fieldSender:      's',
		fieldSignature:   'g',
		fieldUnixFDs:     'u',
	}
	for code, want := range tt {
		got, ok := fieldValueCode(code)
		if !ok || got != want {
			t.Errorf("fieldValueCode(%d) = %q, %v, want %q, true", code, got, ok, want)
		}
	}
	if _, ok := fieldValueCode(fieldMax); ok {
		t.Errorf("fieldValueCode(fieldMax) ok = true, want false")
	}
}
