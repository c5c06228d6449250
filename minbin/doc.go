// Package minbin implements MINBIN, a compact binary serialization codec.
//
// MINBIN is designed to be:
//   - Minimal on the wire (varint integers, no field names, no padding)
//   - Lossless (decode(encode(v)) == v, bit-exact)
//   - Deterministic + canonical (exactly one encoding per value)
//   - Schema-external (producer and consumer agree on layout out of band)
//
// The format is not self-describing: a byte stream is only meaningful
// relative to a known expected shape. That is the price of minimality,
// and it is deliberate. Mismatched schemas between producer and
// consumer are undefined at the format level.
//
// # Wire Layout
//
// Lengths, counts, tags and all integer values are LEB128 varints
// (zig-zag mapped first when signed) unless noted:
//
//	unit       (zero bytes)
//	bool       1 byte: 0x00 or 0x01
//	u8..u64    varint
//	i8..i64    varint of zig-zag value
//	f32/f64    4/8 raw IEEE-754 bytes, little-endian
//	char       varint of the Unicode scalar value
//	str/bytes  varint byte length, then raw bytes
//	option     1 tag byte (0=none, 1=some), then inner value if some
//	seq        varint element count, then each element
//	map        varint pair count, then key,value per pair
//	struct     each field in declared order, nothing else stored
//	enum       varint variant index, then exactly one payload value
//
// Varints are strictly canonical: a decoder rejects any encoding with a
// redundant trailing zero group, so every integer has exactly one valid
// byte representation.
//
// # Engine Boundary
//
// The core is a pair of engines. An Encoder accepts one emit call per
// value node, in depth-first field order, and appends bytes to an owned
// buffer. A Decoder, driven by the same ordered sequence of expect
// calls, pulls bytes from a bounds-checked cursor and validates every
// tag, count and length it reads. External producers and consumers bind
// against this operation set directly, through the dynamic Value/Shape
// pair in this package, or through the reflection layer in
// package bind.
//
// # Errors
//
// Decode failures carry the byte offset at which decoding stopped and
// wrap one of the package sentinels (ErrTruncated, ErrInvalidTag,
// ErrInvalidVariant, ErrIntegerOverflow, ErrInvalidUTF8,
// ErrNonCanonical, ErrTrailingBytes), matchable with errors.Is.
// Misusing the begin/end operation contract is ErrContract on either
// engine: a programmer error, not an input error.
package minbin
