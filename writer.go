package dbus

import "encoding/binary"

// byteWriter is a growable byte buffer that knows how to align and encode
// the D-Bus primitive wire types in a chosen byte order.
type byteWriter struct {
	buf   []byte
	order binary.ByteOrder
}

// newByteWriter returns a writer with the given initial capacity and byte
// order. Capacity is only a hint; the buffer grows as needed.
func newByteWriter(capacity int, order binary.ByteOrder) *byteWriter {
	return &byteWriter{
		buf:   make([]byte, 0, capacity),
		order: order,
	}
}

// offset returns the number of bytes written so far.
func (w *byteWriter) offset() int {
	return len(w.buf)
}

// align pads the buffer with zero bytes until its length is a multiple of n.
// n must be one of 1, 2, 4, 8.
func (w *byteWriter) align(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *byteWriter) writeByte(v byte) {
	w.buf = append(w.buf, v)
}

func (w *byteWriter) writeBool(v bool) {
	if v {
		w.writeUint32(1)
	} else {
		w.writeUint32(0)
	}
}

func (w *byteWriter) writeInt16(v int16) {
	w.writeUint16(uint16(v))
}

func (w *byteWriter) writeUint16(v uint16) {
	w.align(2)
	w.buf = binary.LittleEndian.AppendUint16(w.buf, 0)
	w.order.PutUint16(w.buf[len(w.buf)-2:], v)
}

func (w *byteWriter) writeInt32(v int32) {
	w.writeUint32(uint32(v))
}

func (w *byteWriter) writeUint32(v uint32) {
	w.align(4)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, 0)
	w.order.PutUint32(w.buf[len(w.buf)-4:], v)
}

func (w *byteWriter) writeInt64(v int64) {
	w.writeUint64(uint64(v))
}

func (w *byteWriter) writeUint64(v uint64) {
	w.align(8)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, 0)
	w.order.PutUint64(w.buf[len(w.buf)-8:], v)
}

func (w *byteWriter) writeFloat64(v float64) {
	w.writeUint64(float64bits(v))
}

func (w *byteWriter) writeUnixFD(v uint32) {
	w.writeUint32(v)
}

// writeString aligns to 4, writes the UTF-8 byte length as uint32, the
// bytes themselves, then a single trailing NUL.
func (w *byteWriter) writeString(s string) {
	w.writeUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

func (w *byteWriter) writeObjectPath(s string) {
	w.writeString(s)
}

// writeSignature writes the length as a single byte (no prior alignment),
// the bytes, then a trailing NUL.
func (w *byteWriter) writeSignature(s string) {
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// setUint32At overwrites the 4 bytes at off with v, used to patch array
// and body length prefixes after their contents are known.
func (w *byteWriter) setUint32At(off int, v uint32) {
	w.order.PutUint32(w.buf[off:off+4], v)
}

// bytes returns the filled prefix of the buffer.
func (w *byteWriter) bytes() []byte {
	return w.buf
}
