// Package binary encodes fixed layout account state. Integers are little
// endian and optional fields carry a presence tag of a caller chosen width.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

// Writer fills a preallocated buffer from the front.
type Writer struct {
	buf    []byte
	offset int
}

func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, size)}
}

// Bytes returns the full buffer, including any unwritten tail.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Key(v ed25519.PublicKey) {
	copy(w.buf[w.offset:], v)
	w.offset += ed25519.PublicKeySize
}

// OptionalKey writes a tag of tagSize bytes followed by the key. An empty key
// leaves both zeroed.
func (w *Writer) OptionalKey(v ed25519.PublicKey, tagSize int) {
	if len(v) > 0 {
		w.buf[w.offset] = 1
		copy(w.buf[w.offset+tagSize:], v)
	}
	w.offset += tagSize + ed25519.PublicKeySize
}

func (w *Writer) Uint8(v uint8) {
	w.buf[w.offset] = v
	w.offset++
}

func (w *Writer) Bool(v bool) {
	if v {
		w.buf[w.offset] = 1
	}
	w.offset++
}

func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.offset:], v)
	w.offset += 8
}

func (w *Writer) OptionalUint64(v *uint64, tagSize int) {
	if v != nil {
		w.buf[w.offset] = 1
		binary.LittleEndian.PutUint64(w.buf[w.offset+tagSize:], *v)
	}
	w.offset += tagSize + 8
}

// Reader consumes a buffer from the front. Callers check the buffer length
// up front; reads past the end panic.
type Reader struct {
	buf    []byte
	offset int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) Key() ed25519.PublicKey {
	v := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(v, r.buf[r.offset:])
	r.offset += ed25519.PublicKeySize
	return v
}

func (r *Reader) OptionalKey(tagSize int) ed25519.PublicKey {
	defer func() { r.offset += tagSize + ed25519.PublicKeySize }()

	if r.buf[r.offset] != 1 {
		return nil
	}
	v := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(v, r.buf[r.offset+tagSize:])
	return v
}

func (r *Reader) Uint8() uint8 {
	v := r.buf[r.offset]
	r.offset++
	return v
}

func (r *Reader) Bool() bool {
	return r.Uint8() == 1
}

func (r *Reader) Uint64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.offset:])
	r.offset += 8
	return v
}

func (r *Reader) OptionalUint64(tagSize int) *uint64 {
	defer func() { r.offset += tagSize + 8 }()

	if r.buf[r.offset] != 1 {
		return nil
	}
	v := binary.LittleEndian.Uint64(r.buf[r.offset+tagSize:])
	return &v
}
