package minbin

import (
	"fmt"
	"strings"
)

// Shape describes the expected layout a Decoder is driven by, and
// doubles as the layout check for dynamic encoding. Because the wire
// format carries no self-description, producer and consumer must hold
// structurally identical shapes; field and variant names live only in
// shapes, for diagnostics and JSON bridging, and never reach the wire.
type Shape struct {
	kind     Kind
	elem     *Shape    // option inner, seq element
	key      *Shape    // map key
	val      *Shape    // map value
	fields   []Field   // struct fields, in wire order
	variants []Variant // enum variants, in index order
}

// Field is one named struct field of a shape.
type Field struct {
	Name  string
	Shape *Shape
}

// Variant is one enum variant: a name and its payload fields. A bare
// variant has no fields; a newtype variant has one.
type Variant struct {
	Name   string
	Fields []Field
}

// ScalarShape returns the shape of a scalar kind. Composite kinds need
// their dedicated constructors; asking for one here is a programming
// error and panics.
func ScalarShape(k Kind) *Shape {
	switch k {
	case KindOption, KindSeq, KindMap, KindStruct, KindEnum:
		panic(fmt.Sprintf("minbin: ScalarShape(%s): use OptionOf/SeqOf/MapOf/StructOf/EnumOf", k))
	}
	return &Shape{kind: k}
}

// OptionOf returns the shape of an option wrapping inner.
func OptionOf(inner *Shape) *Shape {
	return &Shape{kind: KindOption, elem: inner}
}

// SeqOf returns the shape of a sequence of elem.
func SeqOf(elem *Shape) *Shape {
	return &Shape{kind: KindSeq, elem: elem}
}

// MapOf returns the shape of a map from key to val.
func MapOf(key, val *Shape) *Shape {
	return &Shape{kind: KindMap, key: key, val: val}
}

// StructOf returns the shape of a struct with fields in wire order.
func StructOf(fields ...Field) *Shape {
	return &Shape{kind: KindStruct, fields: fields}
}

// EnumOf returns the shape of a tagged union with variants in index
// order.
func EnumOf(variants ...Variant) *Shape {
	return &Shape{kind: KindEnum, variants: variants}
}

// FieldOf creates a named field for StructOf and VariantOf.
func FieldOf(name string, s *Shape) Field {
	return Field{Name: name, Shape: s}
}

// VariantOf creates an enum variant for EnumOf.
func VariantOf(name string, fields ...Field) Variant {
	return Variant{Name: name, Fields: fields}
}

// Kind returns the kind this shape expects.
func (s *Shape) Kind() Kind {
	if s == nil {
		return KindUnit
	}
	return s.kind
}

// Elem returns the inner shape of an option or sequence, nil otherwise.
func (s *Shape) Elem() *Shape { return s.elem }

// KeyVal returns the key and value shapes of a map, nil otherwise.
func (s *Shape) KeyVal() (*Shape, *Shape) { return s.key, s.val }

// Fields returns the struct fields.
func (s *Shape) Fields() []Field { return s.fields }

// Variants returns the enum variants.
func (s *Shape) Variants() []Variant { return s.variants }

// String renders the shape in the textual shape language understood by
// ParseShape. Output is canonical: ParseShape(s.String()) reproduces s.
func (s *Shape) String() string {
	var sb strings.Builder
	s.render(&sb)
	return sb.String()
}

func (s *Shape) render(sb *strings.Builder) {
	switch s.kind {
	case KindOption:
		sb.WriteString("opt(")
		s.elem.render(sb)
		sb.WriteByte(')')
	case KindSeq:
		sb.WriteString("seq(")
		s.elem.render(sb)
		sb.WriteByte(')')
	case KindMap:
		sb.WriteString("map(")
		s.key.render(sb)
		sb.WriteByte(' ')
		s.val.render(sb)
		sb.WriteByte(')')
	case KindStruct:
		sb.WriteString("struct(")
		renderFields(sb, s.fields)
		sb.WriteByte(')')
	case KindEnum:
		sb.WriteString("enum(")
		for i, v := range s.variants {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(v.Name)
			if len(v.Fields) > 0 {
				sb.WriteByte('(')
				renderFields(sb, v.Fields)
				sb.WriteByte(')')
			}
		}
		sb.WriteByte(')')
	default:
		sb.WriteString(s.kind.String())
	}
}

func renderFields(sb *strings.Builder, fields []Field) {
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if f.Name != "" {
			sb.WriteString(f.Name)
			sb.WriteByte(':')
		}
		f.Shape.render(sb)
	}
}

// ============================================================
// Shape language parser
// ============================================================

// ParseShape parses the textual shape language:
//
//	unit bool u8 u16 u32 u64 i8 i16 i32 i64 f32 f64 char str bytes
//	opt(SHAPE)
//	seq(SHAPE)
//	map(KEY VALUE)
//	struct(name:SHAPE name:SHAPE ...)     field names optional
//	enum(name name(SHAPE) name(a:SHAPE b:SHAPE) ...)
//
// Whitespace and commas separate items interchangeably. Example:
//
//	struct(id:u32 name:str tags:opt(seq(bool)))
func ParseShape(src string) (*Shape, error) {
	p := &shapeParser{src: src}
	s, err := p.parseShape()
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.pos < len(p.src) {
		return nil, p.errf("trailing input %q", p.src[p.pos:])
	}
	return s, nil
}

// MustParseShape is ParseShape for shapes known at compile time.
func MustParseShape(src string) *Shape {
	s, err := ParseShape(src)
	if err != nil {
		panic(err)
	}
	return s
}

var scalarKinds = map[string]Kind{
	"unit": KindUnit, "bool": KindBool,
	"u8": KindU8, "u16": KindU16, "u32": KindU32, "u64": KindU64,
	"i8": KindI8, "i16": KindI16, "i32": KindI32, "i64": KindI64,
	"f32": KindF32, "f64": KindF64,
	"char": KindChar, "str": KindString, "bytes": KindBytes,
}

type shapeParser struct {
	src string
	pos int
}

func (p *shapeParser) errf(format string, args ...any) error {
	return fmt.Errorf("minbin: shape at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *shapeParser) skip() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', ',':
			p.pos++
		default:
			return
		}
	}
}

func (p *shapeParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *shapeParser) expect(c byte) error {
	p.skip()
	if p.peek() != c {
		return p.errf("expected %q", string(c))
	}
	p.pos++
	return nil
}

func (p *shapeParser) ident() (string, error) {
	p.skip()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errf("expected identifier")
	}
	return p.src[start:p.pos], nil
}

func (p *shapeParser) parseShape() (*Shape, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	return p.parseNamed(name)
}

func (p *shapeParser) parseNamed(name string) (*Shape, error) {
	if k, ok := scalarKinds[name]; ok {
		return &Shape{kind: k}, nil
	}
	switch name {
	case "opt", "seq":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		elem, err := p.parseShape()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if name == "opt" {
			return OptionOf(elem), nil
		}
		return SeqOf(elem), nil
	case "map":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		key, err := p.parseShape()
		if err != nil {
			return nil, err
		}
		val, err := p.parseShape()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return MapOf(key, val), nil
	case "struct":
		fields, err := p.parseFieldList()
		if err != nil {
			return nil, err
		}
		return StructOf(fields...), nil
	case "enum":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		var variants []Variant
		for {
			p.skip()
			if p.peek() == ')' {
				p.pos++
				break
			}
			vname, err := p.ident()
			if err != nil {
				return nil, err
			}
			var fields []Field
			p.skip()
			if p.peek() == '(' {
				fields, err = p.parseFieldList()
				if err != nil {
					return nil, err
				}
			}
			variants = append(variants, Variant{Name: vname, Fields: fields})
		}
		if len(variants) == 0 {
			return nil, p.errf("enum needs at least one variant")
		}
		return EnumOf(variants...), nil
	default:
		return nil, p.errf("unknown shape %q", name)
	}
}

// parseFieldList parses "(" { [name ":"] shape } ")".
func (p *shapeParser) parseFieldList() ([]Field, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var fields []Field
	for {
		p.skip()
		if p.peek() == ')' {
			p.pos++
			return fields, nil
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		p.skip()
		if p.peek() == ':' {
			p.pos++
			s, err := p.parseShape()
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: name, Shape: s})
			continue
		}
		// Bare shape, unnamed field.
		s, err := p.parseNamed(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Shape: s})
	}
}

// ============================================================
// Dynamic encode/decode
// ============================================================

// EncodeValue walks v against s through the Encoder operation set. A
// structural mismatch between value and shape is reported as
// ErrContract: dynamic producers are callers too.
func EncodeValue(e *Encoder, s *Shape, v *Value) error {
	if v.Kind() != s.Kind() {
		return fmt.Errorf("%w: value is %s, shape wants %s", ErrContract, v.Kind(), s.Kind())
	}
	switch s.kind {
	case KindUnit:
		e.Unit()
	case KindBool:
		e.Bool(v.boolVal)
	case KindU8, KindU16, KindU32, KindU64:
		e.uvarint(v.uintVal)
	case KindI8, KindI16, KindI32, KindI64:
		e.varint(v.intVal)
	case KindF32:
		e.F32(float32(v.floatVal))
	case KindF64:
		e.F64(v.floatVal)
	case KindChar:
		e.Char(v.charVal)
	case KindString:
		e.Str(v.strVal)
	case KindBytes:
		e.Bytes(v.bytesVal)
	case KindOption:
		if v.innerVal == nil {
			e.None()
			return nil
		}
		e.Some()
		return EncodeValue(e, s.elem, v.innerVal)
	case KindSeq:
		e.BeginSeq(len(v.listVal))
		for _, elem := range v.listVal {
			if err := EncodeValue(e, s.elem, elem); err != nil {
				return err
			}
		}
		e.EndSeq()
	case KindMap:
		e.BeginMap(len(v.mapVal))
		for _, entry := range v.mapVal {
			if err := EncodeValue(e, s.key, entry.Key); err != nil {
				return err
			}
			if err := EncodeValue(e, s.val, entry.Val); err != nil {
				return err
			}
		}
		e.EndMap()
	case KindStruct:
		if len(v.listVal) != len(s.fields) {
			return fmt.Errorf("%w: struct has %d fields, shape wants %d", ErrContract, len(v.listVal), len(s.fields))
		}
		e.BeginStruct(len(s.fields))
		for i, f := range s.fields {
			if err := EncodeValue(e, f.Shape, v.listVal[i]); err != nil {
				return err
			}
		}
		e.EndStruct()
	case KindEnum:
		if int(v.variant) >= len(s.variants) {
			return fmt.Errorf("%w: variant %d out of range, enum has %d", ErrContract, v.variant, len(s.variants))
		}
		va := s.variants[v.variant]
		if len(v.listVal) != len(va.Fields) {
			return fmt.Errorf("%w: variant %s has %d payload values, shape wants %d", ErrContract, va.Name, len(v.listVal), len(va.Fields))
		}
		e.Variant(v.variant)
		return encodePayload(e, va.Fields, v.listVal)
	default:
		return fmt.Errorf("%w: unsupported shape kind %s", ErrContract, s.kind)
	}
	return e.Err()
}

// encodePayload emits a variant's payload: unit when empty, the single
// value for a newtype, or a struct wrapping the fields.
func encodePayload(e *Encoder, fields []Field, vals []*Value) error {
	switch len(fields) {
	case 0:
		e.Unit()
	case 1:
		return EncodeValue(e, fields[0].Shape, vals[0])
	default:
		e.BeginStruct(len(fields))
		for i, f := range fields {
			if err := EncodeValue(e, f.Shape, vals[i]); err != nil {
				return err
			}
		}
		e.EndStruct()
	}
	return e.Err()
}

// DecodeValue reconstructs one value of shape s from the Decoder.
func DecodeValue(d *Decoder, s *Shape) (*Value, error) {
	switch s.kind {
	case KindUnit:
		if err := d.Unit(); err != nil {
			return nil, err
		}
		return Unit(), nil
	case KindBool:
		v, err := d.Bool()
		if err != nil {
			return nil, err
		}
		return Bool(v), nil
	case KindU8, KindU16, KindU32, KindU64:
		v, err := d.uvarint(s.kind.width())
		if err != nil {
			return nil, err
		}
		return &Value{kind: s.kind, uintVal: v}, nil
	case KindI8, KindI16, KindI32, KindI64:
		v, err := d.varint(s.kind.width())
		if err != nil {
			return nil, err
		}
		return &Value{kind: s.kind, intVal: v}, nil
	case KindF32:
		v, err := d.F32()
		if err != nil {
			return nil, err
		}
		return F32(v), nil
	case KindF64:
		v, err := d.F64()
		if err != nil {
			return nil, err
		}
		return F64(v), nil
	case KindChar:
		v, err := d.Char()
		if err != nil {
			return nil, err
		}
		return Char(v), nil
	case KindString:
		v, err := d.Str()
		if err != nil {
			return nil, err
		}
		return Str(v), nil
	case KindBytes:
		v, err := d.Bytes()
		if err != nil {
			return nil, err
		}
		return Blob(v), nil
	case KindOption:
		present, err := d.Option()
		if err != nil {
			return nil, err
		}
		if !present {
			return None(), nil
		}
		inner, err := DecodeValue(d, s.elem)
		if err != nil {
			return nil, err
		}
		return Some(inner), nil
	case KindSeq:
		n, err := d.BeginSeq()
		if err != nil {
			return nil, err
		}
		elems := make([]*Value, 0, allocHint(n, d.Remaining()))
		for i := 0; i < n; i++ {
			elem, err := DecodeValue(d, s.elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		if err := d.EndSeq(); err != nil {
			return nil, err
		}
		return Seq(elems...), nil
	case KindMap:
		n, err := d.BeginMap()
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, allocHint(n, d.Remaining()))
		for i := 0; i < n; i++ {
			key, err := DecodeValue(d, s.key)
			if err != nil {
				return nil, err
			}
			val, err := DecodeValue(d, s.val)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: key, Val: val})
		}
		if err := d.EndMap(); err != nil {
			return nil, err
		}
		return MapOfEntries(entries...), nil
	case KindStruct:
		if err := d.BeginStruct(len(s.fields)); err != nil {
			return nil, err
		}
		fields := make([]*Value, 0, len(s.fields))
		for _, f := range s.fields {
			v, err := DecodeValue(d, f.Shape)
			if err != nil {
				return nil, err
			}
			fields = append(fields, v)
		}
		if err := d.EndStruct(); err != nil {
			return nil, err
		}
		return Record(fields...), nil
	case KindEnum:
		idx, err := d.Variant(uint32(len(s.variants)))
		if err != nil {
			return nil, err
		}
		va := s.variants[idx]
		payload, err := decodePayload(d, va.Fields)
		if err != nil {
			return nil, err
		}
		return Enum(idx, payload...), nil
	default:
		return nil, fmt.Errorf("%w: unsupported shape kind %s", ErrContract, s.kind)
	}
}

func decodePayload(d *Decoder, fields []Field) ([]*Value, error) {
	switch len(fields) {
	case 0:
		if err := d.Unit(); err != nil {
			return nil, err
		}
		return nil, nil
	case 1:
		v, err := DecodeValue(d, fields[0].Shape)
		if err != nil {
			return nil, err
		}
		return []*Value{v}, nil
	default:
		if err := d.BeginStruct(len(fields)); err != nil {
			return nil, err
		}
		vals := make([]*Value, 0, len(fields))
		for _, f := range fields {
			v, err := DecodeValue(d, f.Shape)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		if err := d.EndStruct(); err != nil {
			return nil, err
		}
		return vals, nil
	}
}

// allocHint caps an attacker-controlled count by what the remaining
// input could plausibly hold, so a forged length prefix cannot force a
// huge allocation before element reads fail.
func allocHint(n, remaining int) int {
	if n > remaining+1 {
		return remaining + 1
	}
	return n
}

// Encode is the one-call dynamic entry: encode v against s into a fresh
// buffer, honoring the full emit contract.
func Encode(s *Shape, v *Value) ([]byte, error) {
	e := NewEncoder()
	if err := EncodeValue(e, s, v); err != nil {
		return nil, err
	}
	return e.Finish()
}

// Decode is the strict one-call dynamic entry: decode exactly one value
// of shape s from data, rejecting leftover input with ErrTrailingBytes.
func Decode(data []byte, s *Shape) (*Value, error) {
	d := NewDecoder(data)
	v, err := DecodeValue(d, s)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodePrefix decodes one value of shape s from the front of data and
// additionally returns the number of bytes consumed. Use it when
// several values share one stream.
func DecodePrefix(data []byte, s *Shape) (*Value, int, error) {
	d := NewDecoder(data)
	v, err := DecodeValue(d, s)
	if err != nil {
		return nil, d.Offset(), err
	}
	return v, d.Offset(), nil
}
