package minbin

import (
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

// frame tracks one open composite during an encode or decode pass.
// Seq, map and struct frames are opened by Begin* and closed by End*;
// option and enum frames expect exactly one payload value and close on
// their own once it has been produced.
type frame struct {
	kind Kind
	want int // declared item count (pairs count twice for maps)
	got  int // items produced so far
}

// Encoder appends the byte encoding of one value at a time to an owned
// buffer, in an order entirely determined by the caller. Emit
// operations never fail on data; the only error an Encoder can carry is
// ErrContract, raised when the caller violates a declared begin/count
// contract. The first violation sticks and all later operations are
// no-ops, so a producer can emit an entire tree and check Err once.
type Encoder struct {
	buf    *Buffer
	frames []frame
	err    error
}

// NewEncoder creates an Encoder over a fresh buffer.
func NewEncoder() *Encoder {
	return &Encoder{buf: NewBuffer()}
}

// NewEncoderSize creates an Encoder with a buffer capacity hint.
func NewEncoderSize(n int) *Encoder {
	return &Encoder{buf: NewBufferSize(n)}
}

// Err returns the pending contract violation, if any.
func (e *Encoder) Err() error { return e.err }

// Len returns the number of bytes emitted so far.
func (e *Encoder) Len() int { return e.buf.Len() }

// Reset clears the buffer, the frame stack and any pending error so the
// Encoder can be reused for another pass.
func (e *Encoder) Reset() {
	e.buf.Reset()
	e.frames = e.frames[:0]
	e.err = nil
}

// Finish returns the encoded bytes. It fails with ErrContract if a
// violation occurred during the pass or a composite is still open.
func (e *Encoder) Finish() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.frames) > 0 {
		f := e.frames[len(e.frames)-1]
		return nil, fmt.Errorf("%w: unclosed %s", ErrContract, f.kind)
	}
	return e.buf.Bytes(), nil
}

// item accounts one value against the innermost open frame. Returns
// false when the encoder is poisoned or the frame is already full.
func (e *Encoder) item() bool {
	if e.err != nil {
		return false
	}
	if n := len(e.frames); n > 0 {
		f := &e.frames[n-1]
		if f.got >= f.want {
			e.err = fmt.Errorf("%w: %s declared %d items, got more", ErrContract, f.kind, f.want)
			return false
		}
		f.got++
	}
	return true
}

// settle closes completed option/enum frames. Called after every value
// completes: scalars immediately, composites at their End.
func (e *Encoder) settle() {
	for n := len(e.frames); n > 0; n = len(e.frames) {
		f := &e.frames[n-1]
		if (f.kind != KindOption && f.kind != KindEnum) || f.got < f.want {
			return
		}
		e.frames = e.frames[:n-1]
	}
}

func (e *Encoder) violate(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s", ErrContract, fmt.Sprintf(format, args...))
	}
}

// Unit emits nothing. The unit value has no wire representation but
// still counts as one value toward an open frame.
func (e *Encoder) Unit() {
	if !e.item() {
		return
	}
	e.settle()
}

// Bool emits one byte, 0x00 or 0x01.
func (e *Encoder) Bool(v bool) {
	if !e.item() {
		return
	}
	if v {
		e.buf.writeByte(1)
	} else {
		e.buf.writeByte(0)
	}
	e.settle()
}

// U8 through U64 emit the value as a varint. The declared width never
// changes the bytes; it only bounds what the matching decode accepts.
func (e *Encoder) U8(v uint8)   { e.uvarint(uint64(v)) }
func (e *Encoder) U16(v uint16) { e.uvarint(uint64(v)) }
func (e *Encoder) U32(v uint32) { e.uvarint(uint64(v)) }
func (e *Encoder) U64(v uint64) { e.uvarint(v) }

// I8 through I64 emit the zig-zag mapped value as a varint.
func (e *Encoder) I8(v int8)   { e.varint(int64(v)) }
func (e *Encoder) I16(v int16) { e.varint(int64(v)) }
func (e *Encoder) I32(v int32) { e.varint(int64(v)) }
func (e *Encoder) I64(v int64) { e.varint(v) }

func (e *Encoder) uvarint(v uint64) {
	if !e.item() {
		return
	}
	e.buf.buf = AppendUvarint(e.buf.buf, v)
	e.settle()
}

func (e *Encoder) varint(v int64) {
	if !e.item() {
		return
	}
	e.buf.buf = AppendVarint(e.buf.buf, v)
	e.settle()
}

// F32 emits the 4 raw IEEE-754 bytes, little-endian.
func (e *Encoder) F32(v float32) {
	if !e.item() {
		return
	}
	bits := math.Float32bits(v)
	e.buf.write([]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)})
	e.settle()
}

// F64 emits the 8 raw IEEE-754 bytes, little-endian.
func (e *Encoder) F64(v float64) {
	if !e.item() {
		return
	}
	bits := math.Float64bits(v)
	e.buf.write([]byte{
		byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24),
		byte(bits >> 32), byte(bits >> 40), byte(bits >> 48), byte(bits >> 56),
	})
	e.settle()
}

// Char emits the Unicode scalar value as a varint. A rune that is not a
// scalar value (surrogate or out of range) is caller misuse.
func (e *Encoder) Char(v rune) {
	if !e.item() {
		return
	}
	if v < 0 || v > utf8.MaxRune || utf16.IsSurrogate(v) {
		e.violate("char %#x is not a Unicode scalar value", v)
		return
	}
	e.buf.buf = AppendUvarint(e.buf.buf, uint64(v))
	e.settle()
}

// Str emits a varint byte length followed by the raw bytes. The string
// must be valid UTF-8; the matching decode rejects anything else.
func (e *Encoder) Str(v string) {
	if !e.item() {
		return
	}
	e.buf.buf = AppendUvarint(e.buf.buf, uint64(len(v)))
	e.buf.writeString(v)
	e.settle()
}

// Bytes emits a varint byte length followed by the raw bytes.
func (e *Encoder) Bytes(v []byte) {
	if !e.item() {
		return
	}
	e.buf.buf = AppendUvarint(e.buf.buf, uint64(len(v)))
	e.buf.write(v)
	e.settle()
}

// None emits the absent-option tag byte 0x00.
func (e *Encoder) None() {
	if !e.item() {
		return
	}
	e.buf.writeByte(0)
	e.settle()
}

// Some emits the present-option tag byte 0x01. Exactly one value must
// follow as the option's payload.
func (e *Encoder) Some() {
	if !e.item() {
		return
	}
	e.buf.writeByte(1)
	e.frames = append(e.frames, frame{kind: KindOption, want: 1})
}

// BeginSeq emits a varint element count and opens a sequence. Exactly n
// values must follow before EndSeq.
func (e *Encoder) BeginSeq(n int) {
	if n < 0 {
		e.violate("negative seq length %d", n)
		return
	}
	if !e.item() {
		return
	}
	e.buf.buf = AppendUvarint(e.buf.buf, uint64(n))
	e.frames = append(e.frames, frame{kind: KindSeq, want: n})
}

// EndSeq closes the innermost sequence, verifying the declared count.
func (e *Encoder) EndSeq() { e.end(KindSeq) }

// BeginMap emits a varint pair count and opens a map. Exactly n
// key,value emit pairs must follow before EndMap.
func (e *Encoder) BeginMap(n int) {
	if n < 0 {
		e.violate("negative map length %d", n)
		return
	}
	if !e.item() {
		return
	}
	e.buf.buf = AppendUvarint(e.buf.buf, uint64(n))
	e.frames = append(e.frames, frame{kind: KindMap, want: 2 * n})
}

// EndMap closes the innermost map, verifying the declared pair count.
func (e *Encoder) EndMap() { e.end(KindMap) }

// BeginStruct opens a struct of n fields. Nothing is stored on the
// wire: no name, no count, no terminator. Exactly n field values must
// follow before EndStruct, in the declared field order.
func (e *Encoder) BeginStruct(n int) {
	if n < 0 {
		e.violate("negative field count %d", n)
		return
	}
	if !e.item() {
		return
	}
	e.frames = append(e.frames, frame{kind: KindStruct, want: n})
}

// EndStruct closes the innermost struct, verifying the field count.
func (e *Encoder) EndStruct() { e.end(KindStruct) }

// Variant emits a varint variant index. Exactly one payload value must
// follow: Unit for a bare variant, a single value for a newtype
// variant, or a struct wrapping the variant's fields. The total variant
// count is never stored; the decoder must know it a priori.
func (e *Encoder) Variant(index uint32) {
	if !e.item() {
		return
	}
	e.buf.buf = AppendUvarint(e.buf.buf, uint64(index))
	e.frames = append(e.frames, frame{kind: KindEnum, want: 1})
}

func (e *Encoder) end(k Kind) {
	if e.err != nil {
		return
	}
	n := len(e.frames)
	if n == 0 {
		e.violate("end of %s with nothing open", k)
		return
	}
	f := e.frames[n-1]
	if f.kind != k {
		e.violate("end of %s inside %s", k, f.kind)
		return
	}
	if f.got != f.want {
		e.violate("%s declared %d items, got %d", f.kind, f.want, f.got)
		return
	}
	e.frames = e.frames[:n-1]
	e.settle()
}
