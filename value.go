package dbus

import "fmt"

// Value is a D-Bus value tagged with its own signature. It is the closed
// sum type that both the writer and the reader operate on: basic scalars,
// structs, arrays, dict entries and variants each implement it.
type Value interface {
	// Signature returns the D-Bus type signature of this value.
	Signature() Signature
	write(w *byteWriter)
}

// Basic scalar kinds. Each has a constructor Value of the matching name.

type byteValue byte

func Byte(v byte) Value { return byteValue(v) }

func (v byteValue) Signature() Signature { return "y" }
func (v byteValue) write(w *byteWriter)  { w.writeByte(byte(v)) }

type boolValue bool

func Bool(v bool) Value { return boolValue(v) }

func (v boolValue) Signature() Signature { return "b" }
func (v boolValue) write(w *byteWriter)  { w.writeBool(bool(v)) }

type int16Value int16

func Int16(v int16) Value { return int16Value(v) }

func (v int16Value) Signature() Signature { return "n" }
func (v int16Value) write(w *byteWriter)  { w.writeInt16(int16(v)) }

type uint16Value uint16

func Uint16(v uint16) Value { return uint16Value(v) }

func (v uint16Value) Signature() Signature { return "q" }
func (v uint16Value) write(w *byteWriter)  { w.writeUint16(uint16(v)) }

type int32Value int32

func Int32(v int32) Value { return int32Value(v) }

func (v int32Value) Signature() Signature { return "i" }
func (v int32Value) write(w *byteWriter)  { w.writeInt32(int32(v)) }

type uint32Value uint32

func Uint32(v uint32) Value { return uint32Value(v) }

func (v uint32Value) Signature() Signature { return "u" }
func (v uint32Value) write(w *byteWriter)  { w.writeUint32(uint32(v)) }

type int64Value int64

func Int64(v int64) Value { return int64Value(v) }

func (v int64Value) Signature() Signature { return "x" }
func (v int64Value) write(w *byteWriter)  { w.writeInt64(int64(v)) }

type uint64Value uint64

func Uint64(v uint64) Value { return uint64Value(v) }

func (v uint64Value) Signature() Signature { return "t" }
func (v uint64Value) write(w *byteWriter)  { w.writeUint64(uint64(v)) }

type float64Value float64

func Float64(v float64) Value { return float64Value(v) }

func (v float64Value) Signature() Signature { return "d" }
func (v float64Value) write(w *byteWriter)  { w.writeFloat64(float64(v)) }

type stringValue string

func String(v string) Value { return stringValue(v) }

func (v stringValue) Signature() Signature { return "s" }
func (v stringValue) write(w *byteWriter)  { w.writeString(string(v)) }

type objectPathValue string

func ObjectPath(v string) Value { return objectPathValue(v) }

func (v objectPathValue) Signature() Signature { return "o" }
func (v objectPathValue) write(w *byteWriter)  { w.writeObjectPath(string(v)) }

type signatureValue string

func SignatureValue(v string) Value { return signatureValue(v) }

func (v signatureValue) Signature() Signature { return "g" }
func (v signatureValue) write(w *byteWriter)  { w.writeSignature(string(v)) }

type unixFDValue uint32

func UnixFD(v uint32) Value { return unixFDValue(v) }

func (v unixFDValue) Signature() Signature { return "h" }
func (v unixFDValue) write(w *byteWriter)  { w.writeUnixFD(uint32(v)) }

// Struct is an ordered sequence of fields. An empty struct is illegal and
// is rejected by NewStruct.
type Struct struct {
	Fields []Value
}

// NewStruct builds a Struct value. It panics if fields is empty, matching
// the spec's invariant that an empty struct is never a valid value to
// construct (callers build values before handing them to a writer, so this
// is a programming error rather than a recoverable runtime condition).
func NewStruct(fields ...Value) *Struct {
	if len(fields) == 0 {
		panic("dbus: empty struct is not a valid value")
	}
	return &Struct{Fields: fields}
}

func (s *Struct) Signature() Signature {
	sig := "("
	for _, f := range s.Fields {
		sig += string(f.Signature())
	}
	return Signature(sig + ")")
}

func (s *Struct) write(w *byteWriter) {
	w.align(8)
	for _, f := range s.Fields {
		f.write(w)
	}
}

// Array is an ordered sequence of values that all share one signature.
// An empty array must still carry its element signature so Signature()
// can be computed; use NewArray with elemSig for that case.
type Array struct {
	elemSig Signature
	Items   []Value
}

// NewArray builds an Array value. elemSig is the signature of the element
// type; it is used verbatim so an empty array still reports a correct
// Signature(). All of items, if any, must share elemSig.
func NewArray(elemSig Signature, items ...Value) *Array {
	return &Array{elemSig: elemSig, Items: items}
}

func (a *Array) Signature() Signature {
	return Signature("a" + string(a.elemSig))
}

func (a *Array) write(w *byteWriter) {
	w.align(4)
	lenOff := w.offset()
	w.writeUint32(0)
	align := elementAlignment(a.elemSig)
	w.align(align)
	start := w.offset()
	for _, it := range a.Items {
		it.write(w)
	}
	w.setUint32At(lenOff, uint32(w.offset()-start))
}

// DictEntry is a key/value pair. It is only a legal Value as an Array
// element; the key must be a basic type and the value must not itself be
// a dict entry.
type DictEntry struct {
	Key   Value
	Value Value
}

// NewDictEntry builds a DictEntry, panicking if key is not a basic type or
// value is itself a dict entry, per the spec's invariants.
func NewDictEntry(key, value Value) *DictEntry {
	if !isBasicSignature(key.Signature()) {
		panic(fmt.Sprintf("dbus: dict entry key must be a basic type, got %q", key.Signature()))
	}
	if _, ok := value.(*DictEntry); ok {
		panic("dbus: dict entry value must not itself be a dict entry")
	}
	return &DictEntry{Key: key, Value: value}
}

func (e *DictEntry) Signature() Signature {
	return Signature("{" + string(e.Key.Signature()) + string(e.Value.Signature()) + "}")
}

func (e *DictEntry) write(w *byteWriter) {
	w.align(8)
	e.Key.write(w)
	e.Value.write(w)
}

// Variant wraps exactly one Value, carrying its own signature on the wire
// ahead of the value.
type Variant struct {
	Value Value
}

// NewVariant wraps v. v must not be nil: a variant's value is never absent.
func NewVariant(v Value) *Variant {
	if v == nil {
		panic("dbus: variant value must not be nil")
	}
	return &Variant{Value: v}
}

func (v *Variant) Signature() Signature { return "v" }

func (v *Variant) write(w *byteWriter) {
	w.writeSignature(string(v.Value.Signature()))
	v.Value.write(w)
}

func isBasicSignature(sig Signature) bool {
	return len(sig) == 1 && isBasicCode(byte(sig[0]))
}

func isBasicCode(c byte) bool {
	switch c {
	case 'y', 'b', 'n', 'q', 'i', 'u', 'x', 't', 'd', 'h', 's', 'o', 'g':
		return true
	}
	return false
}

// elementAlignment returns the alignment that array readers/writers apply
// before the first element and after each subsequent one, per the element
// alignment table in the spec (y,g,v -> 1; n,q -> 2; b,i,u,h,s,o -> 4;
// x,t,d,struct,dict-entry -> 8; array -> 4).
func elementAlignment(sig Signature) int {
	if len(sig) == 0 {
		return 1
	}
	switch sig[0] {
	case 'y', 'g', 'v':
		return 1
	case 'n', 'q':
		return 2
	case 'b', 'i', 'u', 'h', 's', 'o':
		return 4
	case 'x', 't', 'd', '(', '{':
		return 8
	case 'a':
		return 4
	default:
		return 1
	}
}
