package minbin

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// TestSizeComparison measures encoded size against the usual suspects
// on the same payloads.
func TestSizeComparison(t *testing.T) {
	type result struct {
		name    string
		jsonSz  int
		cborSz  int
		mpSz    int
		minbinSz int
	}
	var results []result

	zenc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer zenc.Close()

	measure := func(t *testing.T, name string, tree any, shape *Shape, v *Value) {
		t.Helper()
		jsonBytes, err := json.Marshal(tree)
		if err != nil {
			t.Fatal(err)
		}
		cborBytes, err := cbor.Marshal(tree)
		if err != nil {
			t.Fatal(err)
		}
		mpBytes, err := msgpack.Marshal(tree)
		if err != nil {
			t.Fatal(err)
		}
		data, err := Encode(shape, v)
		if err != nil {
			t.Fatal(err)
		}
		zstdBytes := zenc.EncodeAll(jsonBytes, nil)

		t.Logf("JSON:        %d bytes", len(jsonBytes))
		t.Logf("JSON+zstd:   %d bytes", len(zstdBytes))
		t.Logf("CBOR:        %d bytes", len(cborBytes))
		t.Logf("MessagePack: %d bytes", len(mpBytes))
		t.Logf("MINBIN:      %d bytes", len(data))
		t.Logf("Savings vs JSON: %.1f%%", 100*(1-float64(len(data))/float64(len(jsonBytes))))

		if len(data) >= len(jsonBytes) {
			t.Errorf("MINBIN %d bytes not smaller than JSON %d bytes", len(data), len(jsonBytes))
		}
		results = append(results, result{name, len(jsonBytes), len(cborBytes), len(mpBytes), len(data)})
	}

	t.Run("Session_Record", func(t *testing.T) {
		tree := map[string]any{
			"id":     300,
			"name":   "ab",
			"active": true,
		}
		shape := MustParseShape("struct(id:u32 name:str active:bool)")
		v := Record(U32(300), Str("ab"), Bool(true))
		measure(t, "Session_Record", tree, shape, v)
	})

	t.Run("Telemetry_Samples", func(t *testing.T) {
		// 50 small readings in u16 fields. A field-width format pays 2
		// bytes each; varints pay 1 while values stay under 128.
		readings := make([]int, 50)
		elems := make([]*Value, 50)
		for i := range readings {
			readings[i] = (i * 7) % 120
			elems[i] = U16(uint16(readings[i]))
		}
		tree := map[string]any{"device": "sensor-7", "readings": readings}
		shape := MustParseShape("struct(device:str readings:seq(u16))")
		v := Record(Str("sensor-7"), Seq(elems...))
		measure(t, "Telemetry_Samples", tree, shape, v)
	})

	t.Run("User_List", func(t *testing.T) {
		var trees []any
		var vals []*Value
		for i := 0; i < 20; i++ {
			name := fmt.Sprintf("user-%02d", i)
			trees = append(trees, map[string]any{
				"id":    1000 + i,
				"name":  name,
				"email": name + "@example.com",
				"admin": i == 0,
			})
			vals = append(vals, Record(
				U32(uint32(1000+i)),
				Str(name),
				Str(name+"@example.com"),
				Bool(i == 0),
			))
		}
		shape := MustParseShape("seq(struct(id:u32 name:str email:str admin:bool))")
		measure(t, "User_List", trees, shape, Seq(vals...))
	})

	t.Run("Sparse_Options", func(t *testing.T) {
		// Mostly-absent optional fields cost one byte each.
		var trees []any
		var vals []*Value
		for i := 0; i < 30; i++ {
			m := map[string]any{"seq": i, "note": nil}
			note := None()
			if i%10 == 0 {
				m["note"] = "checkpoint"
				note = Some(Str("checkpoint"))
			}
			trees = append(trees, m)
			vals = append(vals, Record(U32(uint32(i)), note))
		}
		shape := MustParseShape("seq(struct(seq:u32 note:opt(str)))")
		measure(t, "Sparse_Options", trees, shape, Seq(vals...))
	})

	t.Run("Summary", func(t *testing.T) {
		var totalJSON, totalMinbin int
		t.Log("")
		t.Logf("%-20s %8s %8s %8s %8s %8s", "Case", "JSON", "CBOR", "MsgPack", "MINBIN", "Save%")
		for _, r := range results {
			savings := 100 * (1 - float64(r.minbinSz)/float64(r.jsonSz))
			t.Logf("%-20s %8d %8d %8d %8d %7.1f%%",
				r.name, r.jsonSz, r.cborSz, r.mpSz, r.minbinSz, savings)
			totalJSON += r.jsonSz
			totalMinbin += r.minbinSz
		}
		if totalJSON > 0 {
			t.Logf("Total savings vs JSON: %.1f%%", 100*(1-float64(totalMinbin)/float64(totalJSON)))
		}
	})
}

// BenchmarkEncodeVsStdlib compares encoding throughput on one record.
func BenchmarkEncodeVsStdlib(b *testing.B) {
	tree := map[string]any{
		"id":     300,
		"name":   "ab",
		"active": true,
		"scores": []int{1, 2, 3, 4, 5},
	}
	shape := MustParseShape("struct(id:u32 name:str active:bool scores:seq(u8))")
	v := Record(U32(300), Str("ab"), Bool(true),
		Seq(U8(1), U8(2), U8(3), U8(4), U8(5)))

	b.Run("JSON_Marshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			json.Marshal(tree)
		}
	})

	b.Run("CBOR_Marshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			cbor.Marshal(tree)
		}
	})

	b.Run("Msgpack_Marshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			msgpack.Marshal(tree)
		}
	})

	b.Run("MINBIN_Encode", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Encode(shape, v)
		}
	})

	b.Run("MINBIN_Emit", func(b *testing.B) {
		e := NewEncoder()
		for i := 0; i < b.N; i++ {
			e.Reset()
			e.BeginStruct(4)
			e.U32(300)
			e.Str("ab")
			e.Bool(true)
			e.BeginSeq(5)
			for j := uint8(1); j <= 5; j++ {
				e.U8(j)
			}
			e.EndSeq()
			e.EndStruct()
			e.Finish()
		}
	})
}
