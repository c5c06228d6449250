package minbin

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestAppendUvarint_Golden(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{2097151, []byte{0xff, 0xff, 0x7f}},
		{2097152, []byte{0x80, 0x80, 0x80, 0x01}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}

	for _, tt := range tests {
		got := AppendUvarint(nil, tt.v)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendUvarint(%d) = % x, want % x", tt.v, got, tt.want)
		}
		if len(got) != UvarintLen(tt.v) {
			t.Errorf("UvarintLen(%d) = %d, encoded %d bytes", tt.v, UvarintLen(tt.v), len(got))
		}
	}
}

func TestUvarint_RoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 126, 127, 128, 129, 255, 256,
		16383, 16384, 2097151, 2097152,
		268435455, 268435456,
		math.MaxUint32, math.MaxUint32 + 1,
		math.MaxUint64 - 1, math.MaxUint64,
	}

	for _, v := range values {
		enc := AppendUvarint(nil, v)
		c := NewCursor(enc)
		got, err := c.Uvarint(W64)
		if err != nil {
			t.Fatalf("Uvarint(% x): %v", enc, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
		if c.Remaining() != 0 {
			t.Errorf("round trip %d: %d bytes left over", v, c.Remaining())
		}
	}
}

func TestZigzag(t *testing.T) {
	tests := []struct {
		signed   int64
		unsigned uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
		{63, 126},
		{-64, 127},
		{math.MaxInt64, math.MaxUint64 - 1},
		{math.MinInt64, math.MaxUint64},
	}

	for _, tt := range tests {
		if got := Zigzag(tt.signed); got != tt.unsigned {
			t.Errorf("Zigzag(%d) = %d, want %d", tt.signed, got, tt.unsigned)
		}
		if got := Unzigzag(tt.unsigned); got != tt.signed {
			t.Errorf("Unzigzag(%d) = %d, want %d", tt.unsigned, got, tt.signed)
		}
	}
}

func TestVarint_SignedRoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 2, -2, 63, -64, 64, -65, 127, -128,
		math.MaxInt32, math.MinInt32,
		math.MaxInt64, math.MinInt64,
	}

	for _, v := range values {
		enc := AppendVarint(nil, v)
		got, err := NewCursor(enc).Varint(W64)
		if err != nil {
			t.Fatalf("Varint(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestUvarint_Truncated(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x80},
		{0xff},
		{0x80, 0x80},
		{0xff, 0xff, 0xff},
	}

	for _, in := range inputs {
		_, err := NewCursor(in).Uvarint(W64)
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("Uvarint(% x) error = %v, want ErrTruncated", in, err)
		}
	}
}

func TestUvarint_NonCanonical(t *testing.T) {
	// Each carries a redundant trailing zero group: same value, more
	// bytes than the minimal form.
	inputs := [][]byte{
		{0x80, 0x00},                   // 0 in two bytes
		{0x81, 0x00},                   // 1 in two bytes
		{0xff, 0x00},                   // 127 in two bytes
		{0x80, 0x80, 0x00},             // 0 in three bytes
		{0xac, 0x82, 0x80, 0x00},       // 300 padded out
	}

	for _, in := range inputs {
		_, err := NewCursor(in).Uvarint(W64)
		if !errors.Is(err, ErrNonCanonical) {
			t.Errorf("Uvarint(% x) error = %v, want ErrNonCanonical", in, err)
		}
	}
}

func TestUvarint_Overflow(t *testing.T) {
	t.Run("width", func(t *testing.T) {
		tests := []struct {
			v  uint64
			w  Width
			ok bool
		}{
			{255, W8, true},
			{256, W8, false},
			{math.MaxUint16, W16, true},
			{math.MaxUint16 + 1, W16, false},
			{math.MaxUint32, W32, true},
			{math.MaxUint32 + 1, W32, false},
			{math.MaxUint64, W64, true},
		}
		for _, tt := range tests {
			_, err := NewCursor(AppendUvarint(nil, tt.v)).Uvarint(tt.w)
			if tt.ok && err != nil {
				t.Errorf("Uvarint(%d, w%d): %v", tt.v, tt.w, err)
			}
			if !tt.ok && !errors.Is(err, ErrIntegerOverflow) {
				t.Errorf("Uvarint(%d, w%d) error = %v, want ErrIntegerOverflow", tt.v, tt.w, err)
			}
		}
	})

	t.Run("u64", func(t *testing.T) {
		// Tenth byte carrying more than bit 63.
		in := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}
		_, err := NewCursor(in).Uvarint(W64)
		if !errors.Is(err, ErrIntegerOverflow) {
			t.Errorf("error = %v, want ErrIntegerOverflow", err)
		}

		// Eleventh byte: continuation bit still set on byte ten.
		in = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
		_, err = NewCursor(in).Uvarint(W64)
		if !errors.Is(err, ErrIntegerOverflow) {
			t.Errorf("error = %v, want ErrIntegerOverflow", err)
		}
	})
}

func TestVarint_SignedWidthBounds(t *testing.T) {
	tests := []struct {
		v  int64
		w  Width
		ok bool
	}{
		{127, W8, true},
		{-128, W8, true},
		{128, W8, false},
		{-129, W8, false},
		{math.MaxInt16, W16, true},
		{math.MinInt16, W16, true},
		{math.MaxInt16 + 1, W16, false},
		{math.MinInt16 - 1, W16, false},
		{math.MaxInt32, W32, true},
		{math.MinInt32 - 1, W32, false},
	}

	for _, tt := range tests {
		got, err := NewCursor(AppendVarint(nil, tt.v)).Varint(tt.w)
		if tt.ok {
			if err != nil {
				t.Errorf("Varint(%d, w%d): %v", tt.v, tt.w, err)
			} else if got != tt.v {
				t.Errorf("Varint(%d, w%d) = %d", tt.v, tt.w, got)
			}
			continue
		}
		if !errors.Is(err, ErrIntegerOverflow) {
			t.Errorf("Varint(%d, w%d) error = %v, want ErrIntegerOverflow", tt.v, tt.w, err)
		}
	}
}

func TestUvarint_ErrorOffset(t *testing.T) {
	// The varint starts at offset 2; the error must point there.
	in := []byte{0x01, 0x01, 0x80}
	c := NewCursor(in)
	if _, err := c.Uvarint(W64); err != nil {
		t.Fatalf("prefix byte: %v", err)
	}
	if _, err := c.Uvarint(W64); err != nil {
		t.Fatalf("prefix byte: %v", err)
	}
	_, err := c.Uvarint(W64)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if de.Offset != 2 {
		t.Errorf("offset = %d, want 2", de.Offset)
	}
}
