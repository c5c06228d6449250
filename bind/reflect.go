package bind

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"

	"github.com/Neumenon/minbin/minbin"
)

var (
	encodableType = reflect.TypeOf((*Encodable)(nil)).Elem()
	decodableType = reflect.TypeOf((*Decodable)(nil)).Elem()
)

func encodeReflect(e *minbin.Encoder, rv reflect.Value) error {
	if !rv.IsValid() {
		return &TypeError{}
	}
	if rv.Type().Implements(encodableType) {
		rv.Interface().(Encodable).EncodeMinbin(e)
		return e.Err()
	}
	if rv.CanAddr() && rv.Addr().Type().Implements(encodableType) {
		rv.Addr().Interface().(Encodable).EncodeMinbin(e)
		return e.Err()
	}

	switch rv.Kind() {
	case reflect.Bool:
		e.Bool(rv.Bool())
	case reflect.Int8:
		e.I8(int8(rv.Int()))
	case reflect.Int16:
		e.I16(int16(rv.Int()))
	case reflect.Int32:
		e.I32(int32(rv.Int()))
	case reflect.Int64, reflect.Int:
		e.I64(rv.Int())
	case reflect.Uint8:
		e.U8(uint8(rv.Uint()))
	case reflect.Uint16:
		e.U16(uint16(rv.Uint()))
	case reflect.Uint32:
		e.U32(uint32(rv.Uint()))
	case reflect.Uint64, reflect.Uint:
		e.U64(rv.Uint())
	case reflect.Float32:
		e.F32(float32(rv.Float()))
	case reflect.Float64:
		e.F64(rv.Float())
	case reflect.String:
		e.Str(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			e.Bytes(rv.Bytes())
			return e.Err()
		}
		n := rv.Len()
		e.BeginSeq(n)
		for i := 0; i < n; i++ {
			if err := encodeReflect(e, rv.Index(i)); err != nil {
				return err
			}
		}
		e.EndSeq()
	case reflect.Array:
		// Fixed length is part of the type, so nothing is stored.
		n := rv.Len()
		e.BeginStruct(n)
		for i := 0; i < n; i++ {
			if err := encodeReflect(e, rv.Index(i)); err != nil {
				return err
			}
		}
		e.EndStruct()
	case reflect.Map:
		return encodeMap(e, rv)
	case reflect.Pointer:
		if rv.IsNil() {
			e.None()
			return e.Err()
		}
		e.Some()
		return encodeReflect(e, rv.Elem())
	case reflect.Struct:
		idx := structFields(rv.Type())
		e.BeginStruct(len(idx))
		for _, i := range idx {
			if err := encodeReflect(e, rv.Field(i)); err != nil {
				return err
			}
		}
		e.EndStruct()
	default:
		return &TypeError{Type: rv.Type()}
	}
	return e.Err()
}

// encodeMap emits map entries sorted by their encoded key bytes, so the
// same map contents always produce the same stream regardless of Go's
// iteration order.
func encodeMap(e *minbin.Encoder, rv reflect.Value) error {
	keys := rv.MapKeys()
	type pair struct {
		enc []byte
		key reflect.Value
	}
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		sub := minbin.NewEncoder()
		if err := encodeReflect(sub, k); err != nil {
			return err
		}
		enc, err := sub.Finish()
		if err != nil {
			return err
		}
		pairs = append(pairs, pair{enc: enc, key: k})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].enc, pairs[j].enc) < 0
	})

	e.BeginMap(len(pairs))
	for _, p := range pairs {
		if err := encodeReflect(e, p.key); err != nil {
			return err
		}
		if err := encodeReflect(e, rv.MapIndex(p.key)); err != nil {
			return err
		}
	}
	e.EndMap()
	return e.Err()
}

func decodeReflect(d *minbin.Decoder, rv reflect.Value) error {
	if rv.CanAddr() && rv.Addr().Type().Implements(decodableType) {
		return rv.Addr().Interface().(Decodable).DecodeMinbin(d)
	}

	switch rv.Kind() {
	case reflect.Bool:
		v, err := d.Bool()
		if err != nil {
			return err
		}
		rv.SetBool(v)
	case reflect.Int8:
		v, err := d.I8()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int16:
		v, err := d.I16()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int32:
		v, err := d.I32()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int64, reflect.Int:
		v, err := d.I64()
		if err != nil {
			return err
		}
		if rv.OverflowInt(v) {
			return fmt.Errorf("%w: %d does not fit %s", minbin.ErrIntegerOverflow, v, rv.Type())
		}
		rv.SetInt(v)
	case reflect.Uint8:
		v, err := d.U8()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint16:
		v, err := d.U16()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint32:
		v, err := d.U32()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint64, reflect.Uint:
		v, err := d.U64()
		if err != nil {
			return err
		}
		if rv.OverflowUint(v) {
			return fmt.Errorf("%w: %d does not fit %s", minbin.ErrIntegerOverflow, v, rv.Type())
		}
		rv.SetUint(v)
	case reflect.Float32:
		v, err := d.F32()
		if err != nil {
			return err
		}
		rv.SetFloat(float64(v))
	case reflect.Float64:
		v, err := d.F64()
		if err != nil {
			return err
		}
		rv.SetFloat(v)
	case reflect.String:
		v, err := d.Str()
		if err != nil {
			return err
		}
		rv.SetString(v)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			v, err := d.Bytes()
			if err != nil {
				return err
			}
			rv.SetBytes(v)
			return nil
		}
		n, err := d.BeginSeq()
		if err != nil {
			return err
		}
		// Grow by appending so a forged count cannot force a huge
		// allocation before element reads fail.
		out := reflect.MakeSlice(rv.Type(), 0, 0)
		for i := 0; i < n; i++ {
			elem := reflect.New(rv.Type().Elem()).Elem()
			if err := decodeReflect(d, elem); err != nil {
				return err
			}
			out = reflect.Append(out, elem)
		}
		if err := d.EndSeq(); err != nil {
			return err
		}
		rv.Set(out)
	case reflect.Array:
		n := rv.Len()
		if err := d.BeginStruct(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := decodeReflect(d, rv.Index(i)); err != nil {
				return err
			}
		}
		return d.EndStruct()
	case reflect.Map:
		n, err := d.BeginMap()
		if err != nil {
			return err
		}
		out := reflect.MakeMap(rv.Type())
		for i := 0; i < n; i++ {
			key := reflect.New(rv.Type().Key()).Elem()
			if err := decodeReflect(d, key); err != nil {
				return err
			}
			val := reflect.New(rv.Type().Elem()).Elem()
			if err := decodeReflect(d, val); err != nil {
				return err
			}
			out.SetMapIndex(key, val)
		}
		if err := d.EndMap(); err != nil {
			return err
		}
		rv.Set(out)
	case reflect.Pointer:
		present, err := d.Option()
		if err != nil {
			return err
		}
		if !present {
			rv.SetZero()
			return nil
		}
		elem := reflect.New(rv.Type().Elem())
		if err := decodeReflect(d, elem.Elem()); err != nil {
			return err
		}
		rv.Set(elem)
	case reflect.Struct:
		idx := structFields(rv.Type())
		if err := d.BeginStruct(len(idx)); err != nil {
			return err
		}
		for _, i := range idx {
			if err := decodeReflect(d, rv.Field(i)); err != nil {
				return err
			}
		}
		return d.EndStruct()
	default:
		return &TypeError{Type: rv.Type()}
	}
	return nil
}

// structFields returns the indexes of the fields Marshal carries:
// exported, not tagged `minbin:"-"`, in declaration order.
func structFields(t reflect.Type) []int {
	idx := make([]int, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		if f.Tag.Get("minbin") == "-" {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}
