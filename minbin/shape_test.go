package minbin

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseShape_Canonical(t *testing.T) {
	// Each input parses, and String() renders the canonical spelling.
	tests := []struct {
		src  string
		want string
	}{
		{"u32", "u32"},
		{"  bool ", "bool"},
		{"opt(str)", "opt(str)"},
		{"seq(seq(i64))", "seq(seq(i64))"},
		{"map(str u8)", "map(str u8)"},
		{"map(str, u8)", "map(str u8)"},
		{"struct()", "struct()"},
		{"struct(id:u32 name:str)", "struct(id:u32 name:str)"},
		{"struct(id: u32, name: str)", "struct(id:u32 name:str)"},
		{"struct(u32 str)", "struct(u32 str)"},
		{"struct(tags:opt(seq(bool)))", "struct(tags:opt(seq(bool)))"},
		{"enum(none some(u32))", "enum(none some(u32))"},
		{"enum(point(x:f64 y:f64) origin)", "enum(point(x:f64 y:f64) origin)"},
		{"map(struct(a:u8) enum(yes no))", "map(struct(a:u8) enum(yes no))"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			s, err := ParseShape(tt.src)
			if err != nil {
				t.Fatalf("ParseShape: %v", err)
			}
			if got := s.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			// Canonical output must re-parse to the same rendering.
			again, err := ParseShape(s.String())
			if err != nil {
				t.Fatalf("reparse: %v", err)
			}
			if again.String() != tt.want {
				t.Errorf("reparse drifted: %q", again.String())
			}
		})
	}
}

func TestParseShape_Errors(t *testing.T) {
	inputs := []string{
		"",
		"u33",
		"opt",
		"opt()",
		"opt(u8",
		"seq(u8) trailing",
		"map(u8)",
		"map(u8 u8 u8)",
		"struct(id:)",
		"enum()",
		"enum(a(b:))",
		"(u8)",
	}

	for _, src := range inputs {
		if _, err := ParseShape(src); err == nil {
			t.Errorf("ParseShape(%q): expected error", src)
		}
	}
}

func TestShapeKindAccessors(t *testing.T) {
	s := MustParseShape("map(str seq(u8))")
	if s.Kind() != KindMap {
		t.Errorf("Kind = %s", s.Kind())
	}
	k, v := s.KeyVal()
	if k.Kind() != KindString || v.Kind() != KindSeq {
		t.Errorf("KeyVal = %s, %s", k.Kind(), v.Kind())
	}
	if v.Elem().Kind() != KindU8 {
		t.Errorf("Elem = %s", v.Elem().Kind())
	}
}

func TestEncodeDecodeValue_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		shape string
		value *Value
	}{
		{"unit", "unit", Unit()},
		{"bool", "bool", Bool(true)},
		{"u8", "u8", U8(200)},
		{"u64", "u64", U64(1 << 62)},
		{"i16", "i16", I16(-3000)},
		{"f32", "f32", F32(2.5)},
		{"f64", "f64", F64(-0.125)},
		{"char", "char", Char('ß')},
		{"str", "str", Str("héllo, 世界")},
		{"bytes", "bytes", Blob([]byte{0, 255, 128})},
		{"none", "opt(u8)", None()},
		{"some", "opt(u8)", Some(U8(7))},
		{"nested_option", "opt(opt(bool))", Some(None())},
		{"empty_seq", "seq(u8)", Seq()},
		{"seq", "seq(i32)", Seq(I32(1), I32(-1), I32(0))},
		{"map", "map(str u8)", MapOfEntries(Pair(Str("a"), U8(1)), Pair(Str("b"), U8(2)))},
		{"empty_struct", "struct()", Record()},
		{"struct", "struct(id:u32 name:str tags:opt(seq(bool)))",
			Record(U32(300), Str("ab"), Some(Seq(Bool(true), Bool(false))))},
		{"enum_bare", "enum(none some(u32))", Enum(0)},
		{"enum_newtype", "enum(none some(u32))", Enum(1, U32(300))},
		{"enum_struct", "enum(origin point(x:f64 y:f64))", Enum(1, F64(1), F64(2))},
		{"deep", "seq(struct(k:map(u8 enum(a b(str)))))",
			Seq(Record(MapOfEntries(Pair(U8(1), Enum(1, Str("x"))))))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MustParseShape(tt.shape)
			data, err := Encode(s, tt.value)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := Decode(data, s)
			if err != nil {
				t.Fatalf("Decode(% x): %v", data, err)
			}
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode_RecordGolden(t *testing.T) {
	s := MustParseShape("struct(id:u32 name:str tags:opt(seq(bool)))")
	v := Record(U32(300), Str("ab"), Some(Seq(Bool(true), Bool(false))))
	data, err := Encode(s, v)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, recordBytes) {
		t.Errorf("encoded % x, want % x", data, recordBytes)
	}
}

func TestEncodeValue_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		shape string
		value *Value
	}{
		{"kind", "u8", Str("no")},
		{"field_count", "struct(a:u8 b:u8)", Record(U8(1))},
		{"variant_range", "enum(only)", Enum(5)},
		{"payload_arity", "enum(some(u32))", Enum(0)},
		{"u8_vs_i8", "i8", U8(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(MustParseShape(tt.shape), tt.value)
			if !errors.Is(err, ErrContract) {
				t.Errorf("error = %v, want ErrContract", err)
			}
		})
	}
}

func TestDecode_TrailingBytes(t *testing.T) {
	s := MustParseShape("u8")
	_, err := Decode([]byte{0x01, 0x02}, s)
	if !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("error = %v, want ErrTrailingBytes", err)
	}
}

func TestDecodePrefix(t *testing.T) {
	s := MustParseShape("struct(a:u32 b:str)")
	first, err := Encode(s, Record(U32(300), Str("x")))
	if err != nil {
		t.Fatal(err)
	}
	stream := append(append([]byte{}, first...), first...)

	v, n, err := DecodePrefix(stream, s)
	if err != nil {
		t.Fatalf("DecodePrefix: %v", err)
	}
	if n != len(first) {
		t.Errorf("consumed %d bytes, want %d", n, len(first))
	}
	if !v.Equal(Record(U32(300), Str("x"))) {
		t.Errorf("value mismatch: %+v", v)
	}

	v2, n2, err := DecodePrefix(stream[n:], s)
	if err != nil {
		t.Fatalf("second DecodePrefix: %v", err)
	}
	if n2 != len(first) || !v2.Equal(v) {
		t.Errorf("second value mismatch")
	}
}

// A forged count cannot force a proportional allocation: the prealloc
// hint is bounded by the input that is actually there.
func TestDecode_ForgedCount(t *testing.T) {
	s := MustParseShape("seq(u8)")
	// Claims ~268M elements, provides none.
	input := []byte{0xff, 0xff, 0xff, 0x7f}
	_, err := Decode(input, s)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("error = %v, want ErrTruncated", err)
	}
}

func TestValueAccessors(t *testing.T) {
	if v, err := U16(9).AsUint(); err != nil || v != 9 {
		t.Errorf("AsUint = %d, %v", v, err)
	}
	if v, err := I32(-9).AsInt(); err != nil || v != -9 {
		t.Errorf("AsInt = %d, %v", v, err)
	}
	if _, err := Str("s").AsUint(); err == nil {
		t.Error("AsUint on str: expected error")
	}
	if !None().IsNone() {
		t.Error("None().IsNone() = false")
	}
	if Some(U8(1)).IsNone() {
		t.Error("Some(..).IsNone() = true")
	}
	inner, err := Some(U8(1)).AsOption()
	if err != nil || inner.Kind() != KindU8 {
		t.Errorf("AsOption = %v, %v", inner, err)
	}
	idx, payload, err := Enum(2, Str("p")).AsEnum()
	if err != nil || idx != 2 || len(payload) != 1 {
		t.Errorf("AsEnum = %d, %v, %v", idx, payload, err)
	}
	if got := Seq(U8(1), U8(2)).Len(); got != 2 {
		t.Errorf("Len = %d", got)
	}
}
