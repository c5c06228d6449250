package minbin

import (
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

// Decoder reconstructs one value at a time from a bounds-checked cursor
// over the input, driven by the same ordered sequence of expect calls
// the producer used. Every tag, count and length read from the wire is
// validated; the first failure poisons the Decoder and is returned from
// every later call, so a consumer can run a whole expect sequence and
// check the error once at the end.
type Decoder struct {
	cur    *Cursor
	frames []frame
	err    error
}

// NewDecoder creates a Decoder over data. The input is not copied; the
// caller must not mutate it during the decode pass.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{cur: NewCursor(data)}
}

// Offset returns the current byte offset into the input.
func (d *Decoder) Offset() int { return d.cur.Offset() }

// Remaining returns the number of unread input bytes.
func (d *Decoder) Remaining() int { return d.cur.Remaining() }

// Err returns the error the Decoder is poisoned with, if any.
func (d *Decoder) Err() error { return d.err }

// Finish asserts the expect sequence is complete: every composite
// closed and no input left. Leftover input is ErrTrailingBytes. Skip
// Finish when several top-level values share one stream.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.frames) > 0 {
		return d.fail(fmt.Errorf("%w: unclosed %s", ErrContract, d.frames[len(d.frames)-1].kind))
	}
	if d.cur.Remaining() > 0 {
		return d.fail(decodeErr(d.cur.Offset(), "", ErrTrailingBytes))
	}
	return nil
}

func (d *Decoder) fail(err error) error {
	if d.err == nil {
		d.err = err
	}
	return d.err
}

// item accounts one expected value against the innermost open frame.
func (d *Decoder) item() error {
	if d.err != nil {
		return d.err
	}
	if n := len(d.frames); n > 0 {
		f := &d.frames[n-1]
		if f.got >= f.want {
			return d.fail(fmt.Errorf("%w: %s declared %d items, expected more", ErrContract, f.kind, f.want))
		}
		f.got++
	}
	return nil
}

func (d *Decoder) settle() {
	for n := len(d.frames); n > 0; n = len(d.frames) {
		f := &d.frames[n-1]
		if (f.kind != KindOption && f.kind != KindEnum) || f.got < f.want {
			return
		}
		d.frames = d.frames[:n-1]
	}
}

// Unit consumes nothing; the unit value has no wire representation.
func (d *Decoder) Unit() error {
	if err := d.item(); err != nil {
		return err
	}
	d.settle()
	return nil
}

// Bool consumes one byte. Anything but 0x00 or 0x01 is ErrInvalidTag.
func (d *Decoder) Bool() (bool, error) {
	if err := d.item(); err != nil {
		return false, err
	}
	start := d.cur.Offset()
	b, err := d.cur.ReadByte()
	if err != nil {
		return false, d.fail(decodeErr(start, "bool", ErrTruncated))
	}
	if b > 1 {
		return false, d.fail(decodeErr(start, "bool", ErrInvalidTag))
	}
	d.settle()
	return b == 1, nil
}

// U8 through U64 decode a varint bounded by the named width. A value
// that does not fit is ErrIntegerOverflow even when the wire bytes
// themselves are well formed.
func (d *Decoder) U8() (uint8, error) {
	v, err := d.uvarint(W8)
	return uint8(v), err
}

func (d *Decoder) U16() (uint16, error) {
	v, err := d.uvarint(W16)
	return uint16(v), err
}

func (d *Decoder) U32() (uint32, error) {
	v, err := d.uvarint(W32)
	return uint32(v), err
}

func (d *Decoder) U64() (uint64, error) {
	return d.uvarint(W64)
}

// I8 through I64 decode a zig-zag varint bounded by the named width.
func (d *Decoder) I8() (int8, error) {
	v, err := d.varint(W8)
	return int8(v), err
}

func (d *Decoder) I16() (int16, error) {
	v, err := d.varint(W16)
	return int16(v), err
}

func (d *Decoder) I32() (int32, error) {
	v, err := d.varint(W32)
	return int32(v), err
}

func (d *Decoder) I64() (int64, error) {
	return d.varint(W64)
}

func (d *Decoder) uvarint(w Width) (uint64, error) {
	if err := d.item(); err != nil {
		return 0, err
	}
	v, err := d.cur.Uvarint(w)
	if err != nil {
		return 0, d.fail(err)
	}
	d.settle()
	return v, nil
}

func (d *Decoder) varint(w Width) (int64, error) {
	if err := d.item(); err != nil {
		return 0, err
	}
	v, err := d.cur.Varint(w)
	if err != nil {
		return 0, d.fail(err)
	}
	d.settle()
	return v, nil
}

// F32 consumes 4 raw IEEE-754 bytes, little-endian.
func (d *Decoder) F32() (float32, error) {
	if err := d.item(); err != nil {
		return 0, err
	}
	start := d.cur.Offset()
	p, err := d.cur.ReadN(4)
	if err != nil {
		return 0, d.fail(decodeErr(start, "f32", ErrTruncated))
	}
	bits := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
	d.settle()
	return math.Float32frombits(bits), nil
}

// F64 consumes 8 raw IEEE-754 bytes, little-endian.
func (d *Decoder) F64() (float64, error) {
	if err := d.item(); err != nil {
		return 0, err
	}
	start := d.cur.Offset()
	p, err := d.cur.ReadN(8)
	if err != nil {
		return 0, d.fail(decodeErr(start, "f64", ErrTruncated))
	}
	bits := uint64(p[0]) | uint64(p[1])<<8 | uint64(p[2])<<16 | uint64(p[3])<<24 |
		uint64(p[4])<<32 | uint64(p[5])<<40 | uint64(p[6])<<48 | uint64(p[7])<<56
	d.settle()
	return math.Float64frombits(bits), nil
}

// Char decodes a varint and validates it is a Unicode scalar value.
func (d *Decoder) Char() (rune, error) {
	if err := d.item(); err != nil {
		return 0, err
	}
	start := d.cur.Offset()
	v, err := d.cur.Uvarint(W32)
	if err != nil {
		return 0, d.fail(err)
	}
	r := rune(v)
	if v > utf8.MaxRune || utf16.IsSurrogate(r) {
		return 0, d.fail(decodeErr(start, "char", ErrInvalidUTF8))
	}
	d.settle()
	return r, nil
}

// Str decodes a varint length prefix and that many raw bytes, which
// must be valid UTF-8. The returned string owns its memory.
func (d *Decoder) Str() (string, error) {
	p, err := d.span("str")
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p.bytes) {
		return "", d.fail(decodeErr(p.start, "str", ErrInvalidUTF8))
	}
	d.settle()
	return string(p.bytes), nil
}

// Bytes decodes a varint length prefix and that many raw bytes. The
// returned slice is a copy and does not alias the input.
func (d *Decoder) Bytes() ([]byte, error) {
	p, err := d.span("bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(p.bytes))
	copy(out, p.bytes)
	d.settle()
	return out, nil
}

type span struct {
	start int
	bytes []byte
}

// span reads a length-prefixed byte run. A length pointing past the end
// of the input is ErrTruncated before anything is allocated.
func (d *Decoder) span(what string) (span, error) {
	if err := d.item(); err != nil {
		return span{}, err
	}
	lenStart := d.cur.Offset()
	n, err := d.cur.Uvarint(W64)
	if err != nil {
		return span{}, d.fail(err)
	}
	if n > uint64(d.cur.Remaining()) {
		return span{}, d.fail(decodeErr(lenStart, what+" length", ErrTruncated))
	}
	start := d.cur.Offset()
	p, err := d.cur.ReadN(int(n))
	if err != nil {
		return span{}, d.fail(decodeErr(start, what, ErrTruncated))
	}
	return span{start: start, bytes: p}, nil
}

// Option consumes the presence byte. When it reports true, exactly one
// payload value must be expected next. A byte outside {0, 1} is
// ErrInvalidTag.
func (d *Decoder) Option() (bool, error) {
	if err := d.item(); err != nil {
		return false, err
	}
	start := d.cur.Offset()
	b, err := d.cur.ReadByte()
	if err != nil {
		return false, d.fail(decodeErr(start, "option tag", ErrTruncated))
	}
	switch b {
	case 0:
		d.settle()
		return false, nil
	case 1:
		d.frames = append(d.frames, frame{kind: KindOption, want: 1})
		return true, nil
	default:
		return false, d.fail(decodeErr(start, "option tag", ErrInvalidTag))
	}
}

// BeginSeq decodes the element count and opens a sequence. The caller
// must expect exactly that many elements, then call EndSeq.
func (d *Decoder) BeginSeq() (int, error) {
	return d.beginCounted(KindSeq, "seq length", 1)
}

// EndSeq closes the innermost sequence.
func (d *Decoder) EndSeq() error { return d.end(KindSeq) }

// BeginMap decodes the pair count and opens a map. The caller must
// expect a key and a value per pair, then call EndMap.
func (d *Decoder) BeginMap() (int, error) {
	return d.beginCounted(KindMap, "map length", 2)
}

// EndMap closes the innermost map.
func (d *Decoder) EndMap() error { return d.end(KindMap) }

// BeginStruct opens a struct of n fields. Nothing is read from the
// wire; the field count comes from the caller's expected shape.
func (d *Decoder) BeginStruct(n int) error {
	if err := d.item(); err != nil {
		return err
	}
	if n < 0 {
		return d.fail(fmt.Errorf("%w: negative field count %d", ErrContract, n))
	}
	d.frames = append(d.frames, frame{kind: KindStruct, want: n})
	return nil
}

// EndStruct closes the innermost struct.
func (d *Decoder) EndStruct() error { return d.end(KindStruct) }

// Variant decodes the variant index and validates it against the
// caller's declared variant count. Exactly one payload value must be
// expected next: Unit for a bare variant, a single value for a newtype
// variant, or a struct wrapping the variant's fields.
func (d *Decoder) Variant(numVariants uint32) (uint32, error) {
	if err := d.item(); err != nil {
		return 0, err
	}
	start := d.cur.Offset()
	v, err := d.cur.Uvarint(W32)
	if err != nil {
		return 0, d.fail(err)
	}
	if v >= uint64(numVariants) {
		return 0, d.fail(decodeErr(start, "variant index", ErrInvalidVariant))
	}
	d.frames = append(d.frames, frame{kind: KindEnum, want: 1})
	return uint32(v), nil
}

func (d *Decoder) beginCounted(k Kind, what string, itemsPer int) (int, error) {
	if err := d.item(); err != nil {
		return 0, err
	}
	start := d.cur.Offset()
	n, err := d.cur.Uvarint(W64)
	if err != nil {
		return 0, d.fail(err)
	}
	if n > math.MaxInt64/uint64(itemsPer) || int64(n) > int64(math.MaxInt) {
		return 0, d.fail(decodeErr(start, what, ErrIntegerOverflow))
	}
	d.frames = append(d.frames, frame{kind: k, want: int(n) * itemsPer})
	return int(n), nil
}

func (d *Decoder) end(k Kind) error {
	if d.err != nil {
		return d.err
	}
	n := len(d.frames)
	if n == 0 {
		return d.fail(fmt.Errorf("%w: end of %s with nothing open", ErrContract, k))
	}
	f := d.frames[n-1]
	if f.kind != k {
		return d.fail(fmt.Errorf("%w: end of %s inside %s", ErrContract, k, f.kind))
	}
	if f.got != f.want {
		return d.fail(fmt.Errorf("%w: %s declared %d items, expected %d", ErrContract, f.kind, f.want, f.got))
	}
	d.frames = d.frames[:n-1]
	d.settle()
	return nil
}
