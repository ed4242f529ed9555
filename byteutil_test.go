package bytestore

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestNextCapacity(t *testing.T) {
	tests := []struct {
		c, min, want int
	}{
		{0, 0, 0},
		{0, 1, 16},
		{16, 16, 16},
		{16, 17, 32},
		{100, 1000, 1600},
		{3, 20, 32},
	}
	for _, tt := range tests {
		if got := nextCapacity(tt.c, tt.min); got != tt.want {
			t.Errorf("nextCapacity(%d, %d) = %d, wanted %d", tt.c, tt.min, got, tt.want)
		}
	}
}

func TestBytesBuilder(t *testing.T) {
	var bb bytesBuilder
	_, _ = bb.Write([]byte{1, 2})
	_ = bb.WriteByte(3)
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3}) {
		t.Fatalf("bb.Buf = %x, wanted 010203", bb.Buf)
	}
	if cap(bb.Buf) < minGrowth {
		t.Fatalf("cap(bb.Buf) = %d, wanted >= %d", cap(bb.Buf), minGrowth)
	}
}

func TestByteDecoder(t *testing.T) {
	buf := appendUvarint(nil, 300)
	buf = appendUvarint(buf, 1)
	buf = append(buf, 0xAA, 0xBB)

	d := makeByteDecoder(buf)
	if v, err := d.Uvarint(); err != nil || v != 300 {
		t.Fatalf("Uvarint = (%d, %v), wanted 300", v, err)
	}
	if v, err := d.Uvarinti(); err != nil || v != 1 {
		t.Fatalf("Uvarinti = (%d, %v), wanted 1", v, err)
	}
	if raw, err := d.Raw(2); err != nil || !reflect.DeepEqual(raw, []byte{0xAA, 0xBB}) {
		t.Fatalf("Raw = (%x, %v), wanted aabb", raw, err)
	}
	if !d.Empty() || d.Off() != len(buf) {
		t.Fatalf("decoder not exhausted: off=%d", d.Off())
	}
}

func TestByteDecoder_Errors(t *testing.T) {
	t.Run("invalid uvarint", func(t *testing.T) {
		d := makeByteDecoder([]byte{0x80}) // continuation bit with no terminator
		_, err := d.Uvarint()
		var de *DataError
		if !errors.As(err, &de) || !errors.Is(err, ErrDecode) {
			t.Fatalf("Uvarint err = %T %v, wanted *DataError matching ErrDecode", err, err)
		}
	})

	t.Run("uvarint overflows int", func(t *testing.T) {
		var b [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(b[:], uint64(math.MaxInt)+1)
		d := makeByteDecoder(b[:n])
		if _, err := d.Uvarinti(); err == nil {
			t.Fatalf("Uvarinti err = nil, wanted error")
		}
	})

	t.Run("Raw not enough data", func(t *testing.T) {
		d := makeByteDecoder([]byte{1, 2})
		if _, err := d.Raw(3); err == nil {
			t.Fatalf("Raw err = nil, wanted error")
		}
	})
}
