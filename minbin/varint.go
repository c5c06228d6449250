package minbin

import "math"

// Width bounds the decode target of an integer. Encoding ignores the
// declared width entirely; a value of 3 in a 64-bit field still costs
// one byte. The width only limits what a decoder will accept.
type Width uint8

const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// maxUint is the largest unsigned value representable in w bits.
// Zig-zag maps the full signed range of a width onto exactly this
// unsigned range, so the same bound serves both directions.
func (w Width) maxUint() uint64 {
	if w >= 64 {
		return math.MaxUint64
	}
	return 1<<w - 1
}

// AppendUvarint appends the canonical LEB128 encoding of v: seven value
// bits per byte, least-significant group first, high bit set while more
// bytes follow. The minimal form is emitted, so the final byte is never
// zero unless the whole encoding is the single byte 0x00.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// AppendVarint appends the canonical encoding of the zig-zag mapped v.
func AppendVarint(dst []byte, v int64) []byte {
	return AppendUvarint(dst, Zigzag(v))
}

// Zigzag maps a signed integer onto the unsigned domain, smallest
// magnitudes first: 0, -1, 1, -2, 2, ... become 0, 1, 2, 3, 4, ...
func Zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// Unzigzag reverses Zigzag.
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// UvarintLen returns the encoded size of v in bytes (1..10).
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Uvarint decodes an unsigned varint into a w-bit target. It fails with
// ErrTruncated when the input ends before a terminating byte,
// ErrIntegerOverflow when the value exceeds w bits (or the encoding
// runs past the ten bytes a u64 can need), and ErrNonCanonical when the
// terminating group is zero beyond the minimal form. Decoding is
// strict: one value, one encoding.
func (c *Cursor) Uvarint(w Width) (uint64, error) {
	start := c.pos
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		b, err := c.ReadByte()
		if err != nil {
			return 0, decodeErr(start, "varint", ErrTruncated)
		}
		// Byte ten may carry only bit 63; anything more, or an
		// eleventh byte, cannot fit a u64.
		if i == 9 && b > 1 {
			return 0, decodeErr(start, "varint", ErrIntegerOverflow)
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			if b == 0 && i > 0 {
				return 0, decodeErr(start, "varint", ErrNonCanonical)
			}
			break
		}
		shift += 7
	}
	if v > w.maxUint() {
		return 0, decodeErr(start, "varint", ErrIntegerOverflow)
	}
	return v, nil
}

// Varint decodes a zig-zag varint into a signed w-bit target.
func (c *Cursor) Varint(w Width) (int64, error) {
	u, err := c.Uvarint(w)
	if err != nil {
		return 0, err
	}
	return Unzigzag(u), nil
}
