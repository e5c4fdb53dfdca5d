package dbus

import "fmt"

// readValue decodes one single complete type described by n from r.
func readValue(r *byteReader, n *typeNode) (Value, error) {
	switch n.kind {
	case nodeBasic:
		return readBasic(r, n.code)
	case nodeVariant:
		return readVariant(r)
	case nodeStruct:
		return readStruct(r, n.sub)
	case nodeArray:
		return readArray(r, n.elem)
	case nodeDictEntry:
		return nil, fmt.Errorf("dbus: dict entry is not a standalone value")
	default:
		return nil, fmt.Errorf("dbus: unknown signature node")
	}
}

func readBasic(r *byteReader, code byte) (Value, error) {
	switch code {
	case 'y':
		v, err := r.readByte()
		return Byte(v), err
	case 'b':
		v, err := r.readBool()
		return Bool(v), err
	case 'n':
		v, err := r.readInt16()
		return Int16(v), err
	case 'q':
		v, err := r.readUint16()
		return Uint16(v), err
	case 'i':
		v, err := r.readInt32()
		return Int32(v), err
	case 'u':
		v, err := r.readUint32()
		return Uint32(v), err
	case 'x':
		v, err := r.readInt64()
		return Int64(v), err
	case 't':
		v, err := r.readUint64()
		return Uint64(v), err
	case 'd':
		v, err := r.readFloat64()
		return Float64(v), err
	case 'h':
		v, err := r.readUnixFD()
		return UnixFD(v), err
	case 's':
		v, err := r.readString()
		return String(v), err
	case 'o':
		v, err := r.readObjectPath()
		return ObjectPath(v), err
	case 'g':
		v, err := r.readSignature()
		return SignatureValue(v), err
	default:
		return nil, fmt.Errorf("dbus: unknown type code %q", code)
	}
}

// readVariant reads a signature, requires it describe exactly one single
// complete type, and decodes a value of that type.
func readVariant(r *byteReader) (Value, error) {
	sigStr, err := r.readSignature()
	if err != nil {
		return nil, err
	}
	node, err := Signature(sigStr).ParseSingle()
	if err != nil {
		return nil, err
	}
	v, err := readValue(r, node)
	if err != nil {
		return nil, err
	}
	return NewVariant(v), nil
}

// readStruct aligns to 8 then reads each sub-plan in order.
func readStruct(r *byteReader, fields []*typeNode) (Value, error) {
	if err := r.align(8); err != nil {
		return nil, err
	}
	vals := make([]Value, 0, len(fields))
	for _, f := range fields {
		v, err := readValue(r, f)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return &Struct{Fields: vals}, nil
}

// readArray reads an array whose elements are described by elem. Dict
// entries accumulate into an ordered map (last-write-wins on duplicate
// keys); every other element, basic or container, is appended to an
// *Array as a decoded Value. Basic elements are not collected into a
// slice of the native Go type.
func readArray(r *byteReader, elem *typeNode) (Value, error) {
	elemSig := nodeSignature(elem)
	arr := &Array{elemSig: elemSig}

	if elem.kind == nodeDictEntry {
		dict := &DictValue{elemSig: elemSig}
		err := r.consumeArray(elementAlignment(elemSig), func() error {
			if err := r.align(8); err != nil {
				return err
			}
			key, err := readValue(r, elem.sub[0])
			if err != nil {
				return err
			}
			val, err := readValue(r, elem.sub[1])
			if err != nil {
				return err
			}
			dict.set(key, val)
			return nil
		})
		return dict, err
	}

	err := r.consumeArray(elementAlignment(elemSig), func() error {
		v, err := readValue(r, elem)
		if err != nil {
			return err
		}
		arr.Items = append(arr.Items, v)
		return nil
	})
	return arr, err
}

func nodeSignature(n *typeNode) Signature {
	return n.raw
}

// DictValue is the decoded form of an "a{KV}" array: an ordered key/value
// map where duplicate keys follow last-write-wins, but the position of a
// key's first appearance is preserved.
type DictValue struct {
	elemSig Signature
	keys    []Value
	index   map[Value]int
	values  []Value
}

func (d *DictValue) set(key, val Value) {
	if d.index == nil {
		d.index = make(map[Value]int)
	}
	if i, ok := d.index[key]; ok {
		d.values[i] = val
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, val)
}

// Get returns the value for key and whether it was present.
func (d *DictValue) Get(key Value) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}
	return d.values[i], true
}

// Keys returns the dict's keys in first-insertion order.
func (d *DictValue) Keys() []Value { return d.keys }

// Len returns the number of entries.
func (d *DictValue) Len() int { return len(d.keys) }

func (d *DictValue) Signature() Signature {
	return Signature("a" + string(d.elemSig))
}

func (d *DictValue) write(w *byteWriter) {
	w.align(4)
	lenOff := w.offset()
	w.writeUint32(0)
	w.align(8)
	start := w.offset()
	for i, k := range d.keys {
		w.align(8)
		k.write(w)
		d.values[i].write(w)
	}
	w.setUint32At(lenOff, uint32(w.offset()-start))
}

// NewDict builds a DictValue from an ordered slice of entries, the shape
// callers use when constructing a body to send. kvSig is the key and value
// signature without braces ("qs" for an a{qs} dict).
func NewDict(kvSig Signature, entries ...*DictEntry) *DictValue {
	d := &DictValue{elemSig: Signature("{" + string(kvSig) + "}")}
	for _, e := range entries {
		d.set(e.Key, e.Value)
	}
	return d
}

// Read parses sig and decodes as many single complete types as it
// contains from r. When sig has exactly one single complete type the
// returned slice has length 1; callers that know they want a scalar can
// index [0].
func Read(r *byteReader, sig Signature) ([]Value, error) {
	nodes, err := sig.Parse()
	if err != nil {
		return nil, err
	}
	vals := make([]Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := readValue(r, n)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Write marshals vals in order onto w. Each value already knows its own
// signature and how to write itself, so no signature parsing happens
// here.
func Write(w *byteWriter, vals ...Value) {
	for _, v := range vals {
		v.write(w)
	}
}

// signatureOf concatenates the signatures of vals, the form used to
// auto-fill a message's body signature header field.
func signatureOf(vals []Value) Signature {
	var sig string
	for _, v := range vals {
		sig += string(v.Signature())
	}
	return Signature(sig)
}
