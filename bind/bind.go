// Package bind connects ordinary Go values to the minbin engines.
//
// Types can bind explicitly, by implementing Encodable and Decodable
// and walking their own fields through the engine operation sets in a
// fixed order, or implicitly through Marshal and Unmarshal, which walk
// exported struct fields with reflection in declaration order.
//
// Either way the layout contract is the same: producer and consumer
// must agree on field order and widths out of band, because the wire
// carries no names and no self-description.
package bind

import (
	"fmt"
	"reflect"

	"github.com/Neumenon/minbin/minbin"
)

// Encodable is implemented by types that emit themselves through an
// Encoder, one operation per field in a fixed order. Emit operations do
// not fail; contract misuse surfaces from Encoder.Finish.
type Encodable interface {
	EncodeMinbin(e *minbin.Encoder)
}

// Decodable is implemented by types that reconstruct themselves from a
// Decoder, issuing the same ordered expect calls their EncodeMinbin
// produces.
type Decodable interface {
	DecodeMinbin(d *minbin.Decoder) error
}

// TypeError reports a Go type the reflection layer cannot map onto the
// value model.
type TypeError struct {
	Type reflect.Type
}

func (e *TypeError) Error() string {
	if e.Type == nil {
		return "minbin/bind: cannot encode untyped nil"
	}
	return "minbin/bind: unsupported type " + e.Type.String()
}

// Marshal encodes v into a fresh buffer. Mapping:
//
//	bool                 -> bool
//	int8..int64, int     -> i8..i64 (int is i64)
//	uint8..uint64, uint  -> u8..u64 (uint is u64)
//	float32/float64      -> f32/f64
//	string               -> str
//	[]byte               -> bytes
//	[]T                  -> seq of T
//	[N]T                 -> N fixed values, no count stored
//	map[K]V              -> map, entries sorted by encoded key bytes
//	*T                   -> option of T
//	struct               -> exported fields in declaration order
//
// A field tagged `minbin:"-"` is skipped. Types implementing Encodable
// encode themselves. Chan, func, interface and unsafe pointer types
// have no wire mapping and return a *TypeError.
func Marshal(v any) ([]byte, error) {
	e := minbin.NewEncoder()
	if err := MarshalInto(e, v); err != nil {
		return nil, err
	}
	return e.Finish()
}

// MarshalInto encodes v through an existing Encoder, so callers can
// pack several values into one stream or mix reflected values with
// hand-driven emit calls.
func MarshalInto(e *minbin.Encoder, v any) error {
	return encodeReflect(e, reflect.ValueOf(v))
}

// Unmarshal decodes data into the value pointed to by v, applying the
// inverse of the Marshal mapping, and rejects leftover input with
// ErrTrailingBytes.
func Unmarshal(data []byte, v any) error {
	d := minbin.NewDecoder(data)
	if err := UnmarshalFrom(d, v); err != nil {
		return err
	}
	return d.Finish()
}

// UnmarshalPrefix decodes one value from the front of data and returns
// the number of bytes consumed, for streams holding several values.
func UnmarshalPrefix(data []byte, v any) (int, error) {
	d := minbin.NewDecoder(data)
	if err := UnmarshalFrom(d, v); err != nil {
		return d.Offset(), err
	}
	return d.Offset(), nil
}

// UnmarshalFrom decodes one value through an existing Decoder.
func UnmarshalFrom(d *minbin.Decoder, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("minbin/bind: Unmarshal target must be a non-nil pointer, got %T", v)
	}
	return decodeReflect(d, rv.Elem())
}
