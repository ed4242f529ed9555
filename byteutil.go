package bytestore

import (
	"encoding/binary"
	"io"
	"math"
)

const minGrowth = 16

// nextCapacity returns the capacity to allocate so that minCap bytes fit,
// doubling from c to amortize repeated small growths.
func nextCapacity(c, minCap int) int {
	if minCap <= c {
		return c
	}
	if c < minGrowth {
		c = minGrowth
	}
	for minCap > c {
		if c > math.MaxInt/2 {
			return minCap
		}
		c <<= 1
	}
	return c
}

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		old := buf
		buf = make([]byte, len(old), nextCapacity(c, minCap))
		copy(buf, old)
	}
	return buf
}

type bytesBuilder struct {
	Buf []byte
}

var _ io.Writer = (*bytesBuilder)(nil)

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = ensureCapacity(bb.Buf, len(bb.Buf)+len(b))
	bb.Buf = append(bb.Buf, b...)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	bb.Buf = append(ensureCapacity(bb.Buf, len(bb.Buf)+1), v)
	return nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

func putUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

func getUint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

type byteDecoder struct {
	Orig []byte
	Buf  []byte
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, buf}
}

func (d *byteDecoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *byteDecoder) Empty() bool {
	return len(d.Buf) == 0
}

func (d *byteDecoder) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.Buf)
	if n <= 0 {
		return 0, dataErrf(d.Orig, d.Off(), ErrDecode, nil, "invalid uvarint")
	}
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *byteDecoder) Uvarinti() (int, error) {
	v, err := d.Uvarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt {
		return 0, dataErrf(d.Orig, d.Off(), ErrDecode, nil, "value does not fit into int: %d", v)
	}
	return int(v), nil
}

func (d *byteDecoder) Raw(n int) ([]byte, error) {
	if len(d.Buf) < n {
		return nil, dataErrf(d.Orig, d.Off(), ErrDecode, nil, "not enough data: %d bytes remaining, %d wanted", len(d.Buf), n)
	}
	v := d.Buf[:n]
	d.Buf = d.Buf[n:]
	return v, nil
}
