package minbin

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"
)

// ValueFromJSON converts a JSON document into a Value guided by shape.
// JSON is the tooling-side representation only; nothing about it
// reaches the wire. Conversion rules:
//
//   - unit and absent options accept null
//   - integers and floats accept JSON numbers, bounds-checked
//   - char accepts a one-rune string
//   - bytes accepts standard base64
//   - structs accept an object keyed by shape field names (a missing
//     key is allowed only for option fields, which become none) or an
//     array of field values in wire order
//   - maps with string keys accept an object; keys are sorted so the
//     encoding is deterministic. Any map also accepts [[k,v], ...]
//   - enums accept a bare variant name string, or {"name": payload}
func ValueFromJSON(data []byte, shape *Shape) (*Value, error) {
	var tree any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("minbin: json: %w", err)
	}
	return valueFromTree(tree, shape, "$")
}

// ValueToJSON renders a Value as JSON guided by shape, inverting
// ValueFromJSON. Present options render as their inner value, so
// nested options flatten; the bridge is for tooling, the wire format
// itself never loses that distinction.
func ValueToJSON(v *Value, shape *Shape) ([]byte, error) {
	tree, err := treeFromValue(v, shape, "$")
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

func valueFromTree(tree any, s *Shape, path string) (*Value, error) {
	switch s.kind {
	case KindUnit:
		if tree != nil {
			return nil, bridgeErr(path, "unit wants null")
		}
		return Unit(), nil
	case KindBool:
		b, ok := tree.(bool)
		if !ok {
			return nil, bridgeErr(path, "want bool")
		}
		return Bool(b), nil
	case KindU8, KindU16, KindU32, KindU64:
		num, ok := tree.(json.Number)
		if !ok {
			return nil, bridgeErr(path, "want number")
		}
		u, err := strconv.ParseUint(num.String(), 10, int(s.kind.width()))
		if err != nil {
			return nil, bridgeErr(path, "%q does not fit %s", num.String(), s.kind)
		}
		return &Value{kind: s.kind, uintVal: u}, nil
	case KindI8, KindI16, KindI32, KindI64:
		num, ok := tree.(json.Number)
		if !ok {
			return nil, bridgeErr(path, "want number")
		}
		i, err := strconv.ParseInt(num.String(), 10, int(s.kind.width()))
		if err != nil {
			return nil, bridgeErr(path, "%q does not fit %s", num.String(), s.kind)
		}
		return &Value{kind: s.kind, intVal: i}, nil
	case KindF32, KindF64:
		num, ok := tree.(json.Number)
		if !ok {
			return nil, bridgeErr(path, "want number")
		}
		f, err := strconv.ParseFloat(num.String(), 64)
		if err != nil {
			return nil, bridgeErr(path, "bad float %q", num.String())
		}
		if s.kind == KindF32 {
			return F32(float32(f)), nil
		}
		return F64(f), nil
	case KindChar:
		str, ok := tree.(string)
		if !ok {
			return nil, bridgeErr(path, "char wants a one-rune string")
		}
		r, size := utf8.DecodeRuneInString(str)
		if size == 0 || size != len(str) || r == utf8.RuneError && size == 1 {
			return nil, bridgeErr(path, "char wants a one-rune string, got %q", str)
		}
		return Char(r), nil
	case KindString:
		str, ok := tree.(string)
		if !ok {
			return nil, bridgeErr(path, "want string")
		}
		return Str(str), nil
	case KindBytes:
		str, ok := tree.(string)
		if !ok {
			return nil, bridgeErr(path, "bytes wants a base64 string")
		}
		raw, err := base64.StdEncoding.DecodeString(str)
		if err != nil {
			return nil, bridgeErr(path, "bad base64: %v", err)
		}
		return Blob(raw), nil
	case KindOption:
		if tree == nil {
			return None(), nil
		}
		inner, err := valueFromTree(tree, s.elem, path)
		if err != nil {
			return nil, err
		}
		return Some(inner), nil
	case KindSeq:
		arr, ok := tree.([]any)
		if !ok {
			return nil, bridgeErr(path, "want array")
		}
		elems := make([]*Value, 0, len(arr))
		for i, item := range arr {
			elem, err := valueFromTree(item, s.elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return Seq(elems...), nil
	case KindMap:
		return mapFromTree(tree, s, path)
	case KindStruct:
		return structFromTree(tree, s, path)
	case KindEnum:
		return enumFromTree(tree, s, path)
	default:
		return nil, bridgeErr(path, "unsupported shape kind %s", s.kind)
	}
}

func mapFromTree(tree any, s *Shape, path string) (*Value, error) {
	switch t := tree.(type) {
	case map[string]any:
		if s.key.kind != KindString {
			return nil, bridgeErr(path, "object form needs str keys, map has %s; use [[k,v],...]", s.key.kind)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			val, err := valueFromTree(t[k], s.val, path+"."+k)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: Str(k), Val: val})
		}
		return MapOfEntries(entries...), nil
	case []any:
		entries := make([]Entry, 0, len(t))
		for i, item := range t {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return nil, bridgeErr(path, "pair %d: want [key, value]", i)
			}
			key, err := valueFromTree(pair[0], s.key, fmt.Sprintf("%s[%d].key", path, i))
			if err != nil {
				return nil, err
			}
			val, err := valueFromTree(pair[1], s.val, fmt.Sprintf("%s[%d].val", path, i))
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: key, Val: val})
		}
		return MapOfEntries(entries...), nil
	default:
		return nil, bridgeErr(path, "want object or array of pairs")
	}
}

func structFromTree(tree any, s *Shape, path string) (*Value, error) {
	switch t := tree.(type) {
	case map[string]any:
		fields := make([]*Value, 0, len(s.fields))
		for i, f := range s.fields {
			name := f.Name
			if name == "" {
				name = fmt.Sprintf("f%d", i)
			}
			raw, present := t[name]
			if !present {
				if f.Shape.kind == KindOption {
					fields = append(fields, None())
					continue
				}
				return nil, bridgeErr(path, "missing field %q", name)
			}
			v, err := valueFromTree(raw, f.Shape, path+"."+name)
			if err != nil {
				return nil, err
			}
			fields = append(fields, v)
		}
		return Record(fields...), nil
	case []any:
		if len(t) != len(s.fields) {
			return nil, bridgeErr(path, "want %d field values, got %d", len(s.fields), len(t))
		}
		fields := make([]*Value, 0, len(s.fields))
		for i, f := range s.fields {
			v, err := valueFromTree(t[i], f.Shape, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			fields = append(fields, v)
		}
		return Record(fields...), nil
	default:
		return nil, bridgeErr(path, "want object or array")
	}
}

func enumFromTree(tree any, s *Shape, path string) (*Value, error) {
	findVariant := func(name string) (uint32, *Variant, error) {
		for i := range s.variants {
			if s.variants[i].Name == name {
				return uint32(i), &s.variants[i], nil
			}
		}
		return 0, nil, bridgeErr(path, "unknown variant %q", name)
	}

	switch t := tree.(type) {
	case string:
		idx, va, err := findVariant(t)
		if err != nil {
			return nil, err
		}
		if len(va.Fields) != 0 {
			return nil, bridgeErr(path, "variant %q carries a payload", t)
		}
		return Enum(idx), nil
	case map[string]any:
		if len(t) != 1 {
			return nil, bridgeErr(path, `enum wants "name" or {"name": payload}`)
		}
		for name, raw := range t {
			idx, va, err := findVariant(name)
			if err != nil {
				return nil, err
			}
			payload, err := payloadFromTree(raw, va, path+"."+name)
			if err != nil {
				return nil, err
			}
			return Enum(idx, payload...), nil
		}
	}
	return nil, bridgeErr(path, `enum wants "name" or {"name": payload}`)
}

func payloadFromTree(raw any, va *Variant, path string) ([]*Value, error) {
	switch len(va.Fields) {
	case 0:
		if raw != nil {
			return nil, bridgeErr(path, "variant %q takes no payload", va.Name)
		}
		return nil, nil
	case 1:
		v, err := valueFromTree(raw, va.Fields[0].Shape, path)
		if err != nil {
			return nil, err
		}
		return []*Value{v}, nil
	default:
		rec, err := structFromTree(raw, &Shape{kind: KindStruct, fields: va.Fields}, path)
		if err != nil {
			return nil, err
		}
		return rec.listVal, nil
	}
}

func treeFromValue(v *Value, s *Shape, path string) (any, error) {
	if v.Kind() != s.Kind() {
		return nil, bridgeErr(path, "value is %s, shape wants %s", v.Kind(), s.Kind())
	}
	switch s.kind {
	case KindUnit:
		return nil, nil
	case KindBool:
		return v.boolVal, nil
	case KindU8, KindU16, KindU32, KindU64:
		return json.Number(strconv.FormatUint(v.uintVal, 10)), nil
	case KindI8, KindI16, KindI32, KindI64:
		return json.Number(strconv.FormatInt(v.intVal, 10)), nil
	case KindF32, KindF64:
		if math.IsNaN(v.floatVal) || math.IsInf(v.floatVal, 0) {
			return nil, bridgeErr(path, "%v has no JSON representation", v.floatVal)
		}
		return json.Number(strconv.FormatFloat(v.floatVal, 'g', -1, 64)), nil
	case KindChar:
		return string(v.charVal), nil
	case KindString:
		return v.strVal, nil
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.bytesVal), nil
	case KindOption:
		if v.innerVal == nil {
			return nil, nil
		}
		return treeFromValue(v.innerVal, s.elem, path)
	case KindSeq:
		arr := make([]any, 0, len(v.listVal))
		for i, elem := range v.listVal {
			item, err := treeFromValue(elem, s.elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil
	case KindMap:
		if s.key.kind == KindString {
			obj := make(map[string]any, len(v.mapVal))
			for _, entry := range v.mapVal {
				key, err := entry.Key.AsStr()
				if err != nil {
					return nil, bridgeErr(path, "map key: %v", err)
				}
				item, err := treeFromValue(entry.Val, s.val, path+"."+key)
				if err != nil {
					return nil, err
				}
				obj[key] = item
			}
			return obj, nil
		}
		pairs := make([]any, 0, len(v.mapVal))
		for i, entry := range v.mapVal {
			key, err := treeFromValue(entry.Key, s.key, fmt.Sprintf("%s[%d].key", path, i))
			if err != nil {
				return nil, err
			}
			val, err := treeFromValue(entry.Val, s.val, fmt.Sprintf("%s[%d].val", path, i))
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, []any{key, val})
		}
		return pairs, nil
	case KindStruct:
		if len(v.listVal) != len(s.fields) {
			return nil, bridgeErr(path, "struct has %d fields, shape wants %d", len(v.listVal), len(s.fields))
		}
		obj := make(map[string]any, len(s.fields))
		for i, f := range s.fields {
			name := f.Name
			if name == "" {
				name = fmt.Sprintf("f%d", i)
			}
			item, err := treeFromValue(v.listVal[i], f.Shape, path+"."+name)
			if err != nil {
				return nil, err
			}
			obj[name] = item
		}
		return obj, nil
	case KindEnum:
		if int(v.variant) >= len(s.variants) {
			return nil, bridgeErr(path, "variant %d out of range", v.variant)
		}
		va := s.variants[v.variant]
		if len(va.Fields) == 0 {
			return va.Name, nil
		}
		var payload any
		var err error
		if len(va.Fields) == 1 {
			payload, err = treeFromValue(v.listVal[0], va.Fields[0].Shape, path+"."+va.Name)
		} else {
			payload, err = treeFromValue(
				&Value{kind: KindStruct, listVal: v.listVal},
				&Shape{kind: KindStruct, fields: va.Fields},
				path+"."+va.Name,
			)
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{va.Name: payload}, nil
	default:
		return nil, bridgeErr(path, "unsupported shape kind %s", s.kind)
	}
}

func bridgeErr(path, format string, args ...any) error {
	return fmt.Errorf("minbin: json at %s: %s", path, fmt.Sprintf(format, args...))
}
