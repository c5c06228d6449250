package minbin

import (
	"bytes"
	"fmt"
)

// Kind identifies a MINBIN value kind.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindChar
	KindString
	KindBytes
	KindOption
	KindSeq
	KindMap
	KindStruct
	KindEnum
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindChar:
		return "char"
	case KindString:
		return "str"
	case KindBytes:
		return "bytes"
	case KindOption:
		return "opt"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// width returns the decode width for integer kinds.
func (k Kind) width() Width {
	switch k {
	case KindU8, KindI8:
		return W8
	case KindU16, KindI16:
		return W16
	case KindU32, KindI32:
		return W32
	default:
		return W64
	}
}

// Value is a dynamic MINBIN value. It is the in-memory counterpart of
// the wire format's value model and the currency of EncodeValue and
// DecodeValue. The zero Value is unit.
type Value struct {
	kind Kind

	// Scalars (one valid slot based on kind)
	boolVal  bool
	uintVal  uint64
	intVal   int64
	floatVal float64
	charVal  rune
	strVal   string
	bytesVal []byte

	// Option payload; nil means none
	innerVal *Value

	// Seq elements, struct fields, or enum payload values
	listVal []*Value

	// Map entries, in encounter order
	mapVal []Entry

	// Enum variant index
	variant uint32
}

// Entry is one key/value pair of a map value.
type Entry struct {
	Key *Value
	Val *Value
}

// ============================================================
// Constructors
// ============================================================

// Unit creates the unit value.
func Unit() *Value { return &Value{kind: KindUnit} }

// Bool creates a boolean value.
func Bool(v bool) *Value { return &Value{kind: KindBool, boolVal: v} }

// U8 creates an unsigned 8-bit value.
func U8(v uint8) *Value { return &Value{kind: KindU8, uintVal: uint64(v)} }

// U16 creates an unsigned 16-bit value.
func U16(v uint16) *Value { return &Value{kind: KindU16, uintVal: uint64(v)} }

// U32 creates an unsigned 32-bit value.
func U32(v uint32) *Value { return &Value{kind: KindU32, uintVal: uint64(v)} }

// U64 creates an unsigned 64-bit value.
func U64(v uint64) *Value { return &Value{kind: KindU64, uintVal: v} }

// I8 creates a signed 8-bit value.
func I8(v int8) *Value { return &Value{kind: KindI8, intVal: int64(v)} }

// I16 creates a signed 16-bit value.
func I16(v int16) *Value { return &Value{kind: KindI16, intVal: int64(v)} }

// I32 creates a signed 32-bit value.
func I32(v int32) *Value { return &Value{kind: KindI32, intVal: int64(v)} }

// I64 creates a signed 64-bit value.
func I64(v int64) *Value { return &Value{kind: KindI64, intVal: v} }

// F32 creates a 32-bit float value.
func F32(v float32) *Value { return &Value{kind: KindF32, floatVal: float64(v)} }

// F64 creates a 64-bit float value.
func F64(v float64) *Value { return &Value{kind: KindF64, floatVal: v} }

// Char creates a Unicode scalar value.
func Char(v rune) *Value { return &Value{kind: KindChar, charVal: v} }

// Str creates a string value.
func Str(v string) *Value { return &Value{kind: KindString, strVal: v} }

// Blob creates a bytes value.
func Blob(v []byte) *Value { return &Value{kind: KindBytes, bytesVal: v} }

// None creates an absent option value.
func None() *Value { return &Value{kind: KindOption} }

// Some creates a present option value wrapping inner.
func Some(inner *Value) *Value { return &Value{kind: KindOption, innerVal: inner} }

// Seq creates a sequence value.
func Seq(elems ...*Value) *Value { return &Value{kind: KindSeq, listVal: elems} }

// MapOfEntries creates a map value from ordered entries.
func MapOfEntries(entries ...Entry) *Value { return &Value{kind: KindMap, mapVal: entries} }

// Pair creates a map entry for use with MapOfEntries.
func Pair(key, val *Value) Entry { return Entry{Key: key, Val: val} }

// Record creates a struct value with fields in declared order.
func Record(fields ...*Value) *Value { return &Value{kind: KindStruct, listVal: fields} }

// Enum creates a tagged-union value: a variant index and its payload
// field values (none for a bare variant).
func Enum(variant uint32, payload ...*Value) *Value {
	return &Value{kind: KindEnum, variant: variant, listVal: payload}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind. A nil Value is unit.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindUnit
	}
	return v.kind
}

func (v *Value) want(k Kind) error {
	if v == nil {
		return fmt.Errorf("minbin: nil value, want %s", k)
	}
	if v.kind != k {
		return fmt.Errorf("minbin: value is %s, want %s", v.kind, k)
	}
	return nil
}

// AsBool returns the boolean payload.
func (v *Value) AsBool() (bool, error) {
	if err := v.want(KindBool); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsUint returns the payload of any unsigned integer kind, widened.
func (v *Value) AsUint() (uint64, error) {
	if v == nil {
		return 0, fmt.Errorf("minbin: nil value, want unsigned int")
	}
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.uintVal, nil
	}
	return 0, fmt.Errorf("minbin: value is %s, want unsigned int", v.kind)
}

// AsInt returns the payload of any signed integer kind, widened.
func (v *Value) AsInt() (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("minbin: nil value, want signed int")
	}
	switch v.kind {
	case KindI8, KindI16, KindI32, KindI64:
		return v.intVal, nil
	}
	return 0, fmt.Errorf("minbin: value is %s, want signed int", v.kind)
}

// AsFloat returns the payload of either float kind.
func (v *Value) AsFloat() (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("minbin: nil value, want float")
	}
	switch v.kind {
	case KindF32, KindF64:
		return v.floatVal, nil
	}
	return 0, fmt.Errorf("minbin: value is %s, want float", v.kind)
}

// AsChar returns the Unicode scalar payload.
func (v *Value) AsChar() (rune, error) {
	if err := v.want(KindChar); err != nil {
		return 0, err
	}
	return v.charVal, nil
}

// AsStr returns the string payload.
func (v *Value) AsStr() (string, error) {
	if err := v.want(KindString); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsBytes returns the bytes payload.
func (v *Value) AsBytes() ([]byte, error) {
	if err := v.want(KindBytes); err != nil {
		return nil, err
	}
	return v.bytesVal, nil
}

// AsOption returns the option payload, nil when absent.
func (v *Value) AsOption() (*Value, error) {
	if err := v.want(KindOption); err != nil {
		return nil, err
	}
	return v.innerVal, nil
}

// IsNone reports whether v is an absent option.
func (v *Value) IsNone() bool {
	return v != nil && v.kind == KindOption && v.innerVal == nil
}

// AsSeq returns the sequence elements.
func (v *Value) AsSeq() ([]*Value, error) {
	if err := v.want(KindSeq); err != nil {
		return nil, err
	}
	return v.listVal, nil
}

// AsMap returns the map entries in encounter order.
func (v *Value) AsMap() ([]Entry, error) {
	if err := v.want(KindMap); err != nil {
		return nil, err
	}
	return v.mapVal, nil
}

// AsRecord returns the struct fields in declared order.
func (v *Value) AsRecord() ([]*Value, error) {
	if err := v.want(KindStruct); err != nil {
		return nil, err
	}
	return v.listVal, nil
}

// AsEnum returns the variant index and payload values.
func (v *Value) AsEnum() (uint32, []*Value, error) {
	if err := v.want(KindEnum); err != nil {
		return 0, nil, err
	}
	return v.variant, v.listVal, nil
}

// Len returns the element, pair or field count of a container value.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindSeq, KindStruct, KindEnum:
		return len(v.listVal)
	case KindMap:
		return len(v.mapVal)
	default:
		return 0
	}
}

// Equal reports exact structural equality. Floats compare by bit
// pattern semantics of ==, so NaN != NaN, matching round-trip identity
// for every value the codec can actually produce.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v.Kind() == o.Kind()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUnit:
		return true
	case KindBool:
		return v.boolVal == o.boolVal
	case KindU8, KindU16, KindU32, KindU64:
		return v.uintVal == o.uintVal
	case KindI8, KindI16, KindI32, KindI64:
		return v.intVal == o.intVal
	case KindF32, KindF64:
		return v.floatVal == o.floatVal
	case KindChar:
		return v.charVal == o.charVal
	case KindString:
		return v.strVal == o.strVal
	case KindBytes:
		return bytes.Equal(v.bytesVal, o.bytesVal)
	case KindOption:
		if (v.innerVal == nil) != (o.innerVal == nil) {
			return false
		}
		return v.innerVal == nil || v.innerVal.Equal(o.innerVal)
	case KindSeq, KindStruct:
		return equalLists(v.listVal, o.listVal)
	case KindMap:
		if len(v.mapVal) != len(o.mapVal) {
			return false
		}
		for i := range v.mapVal {
			if !v.mapVal[i].Key.Equal(o.mapVal[i].Key) || !v.mapVal[i].Val.Equal(o.mapVal[i].Val) {
				return false
			}
		}
		return true
	case KindEnum:
		return v.variant == o.variant && equalLists(v.listVal, o.listVal)
	default:
		return false
	}
}

func equalLists(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
