package minbin

import (
	"errors"
	"fmt"
)

// Sentinel errors for every boundary condition the codec can hit.
// Decode-side failures arrive wrapped in a *DecodeError carrying the
// byte offset; match them with errors.Is.
var (
	// ErrTruncated means the input ran out before an expected value
	// completed.
	ErrTruncated = errors.New("minbin: truncated input")

	// ErrInvalidTag means a bool or option presence byte was outside
	// {0, 1}.
	ErrInvalidTag = errors.New("minbin: invalid tag byte")

	// ErrInvalidVariant means an enum variant index was at or beyond
	// the declared variant count.
	ErrInvalidVariant = errors.New("minbin: variant index out of range")

	// ErrIntegerOverflow means a decoded integer does not fit the
	// target width.
	ErrIntegerOverflow = errors.New("minbin: integer overflows target width")

	// ErrInvalidUTF8 means a string's raw bytes were not valid UTF-8,
	// or a char was not a Unicode scalar value.
	ErrInvalidUTF8 = errors.New("minbin: invalid UTF-8")

	// ErrNonCanonical means a varint carried a redundant trailing zero
	// group. Exactly one encoding exists per value; anything else is
	// malformed.
	ErrNonCanonical = errors.New("minbin: non-canonical varint")

	// ErrTrailingBytes is reported by Decoder.Finish when input remains
	// after the top-level value.
	ErrTrailingBytes = errors.New("minbin: trailing bytes after value")

	// ErrContract means an Encoder or Decoder was driven in violation
	// of a declared begin/count contract. This is caller misuse, not
	// bad input.
	ErrContract = errors.New("minbin: begin/end contract violation")
)

// DecodeError reports a decode failure and the byte offset at which
// decoding stopped. Offset points at the start of the malformed item.
type DecodeError struct {
	Offset int    // byte offset into the input
	What   string // item being decoded, e.g. "varint", "str length"
	Err    error  // wrapped sentinel
}

func (e *DecodeError) Error() string {
	if e.What == "" {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d while reading %s", e.Err, e.Offset, e.What)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(offset int, what string, err error) error {
	return &DecodeError{Offset: offset, What: what, Err: err}
}
