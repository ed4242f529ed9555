package bytestore

import (
	"iter"
	"math/bits"
)

const bitVectorHeaderSize = 8

// BitVector is a bit-packed sequence of booleans. The backend holds the bit
// count as a little-endian uint64 followed by ceil(count/8) bytes; bit i is
// bit i%8 (least significant first) of byte i/8.
//
// Bits past the count in the last byte are always zero.
type BitVector struct {
	b   Backend
	n   int
	err error
}

// NewBitVector initializes an empty vector on an empty backend or attaches to
// an existing one.
func NewBitVector(b Backend) (*BitVector, error) {
	if b.Len() == 0 {
		if err := b.Resize(bitVectorHeaderSize); err != nil {
			return nil, err
		}
		return &BitVector{b: b}, nil
	}
	if b.Len() < bitVectorHeaderSize {
		return nil, corruptf(nil, "bit vector region of %d bytes is shorter than its header", b.Len())
	}
	hdr, err := b.Read(0, bitVectorHeaderSize)
	if err != nil {
		return nil, err
	}
	n := getUint64(hdr)
	if n > uint64(b.Len())*8 || bitVectorHeaderSize+bytesForBits(int(n)) != b.Len() {
		return nil, corruptf(hdr, "%d bits do not match a %d-byte region", n, b.Len())
	}
	if rem := n % 8; rem != 0 {
		last, err := b.Read(b.Len()-1, 1)
		if err != nil {
			return nil, err
		}
		if last[0]>>rem != 0 {
			return nil, corruptf(last, "bits set past bit %d", n)
		}
	}
	return &BitVector{b: b, n: int(n)}, nil
}

func bytesForBits(n int) int {
	return (n + 7) / 8
}

func (v *BitVector) Len() int { return v.n }

func (v *BitVector) Get(i int) (bool, error) {
	if i < 0 || i >= v.n {
		return false, indexErr(i, v.n)
	}
	byt, err := v.b.Read(bitVectorHeaderSize+i/8, 1)
	if err != nil {
		return false, err
	}
	return byt[0]&(1<<(i%8)) != 0, nil
}

func (v *BitVector) Set(i int, val bool) error {
	if i < 0 || i >= v.n {
		return indexErr(i, v.n)
	}
	return v.setBit(i, val)
}

func (v *BitVector) setBit(i int, val bool) error {
	off := bitVectorHeaderSize + i/8
	byt, err := v.b.Read(off, 1)
	if err != nil {
		return err
	}
	c := byt[0]
	if val {
		c |= 1 << (i % 8)
	} else {
		c &^= 1 << (i % 8)
	}
	return v.b.Write(off, []byte{c})
}

// Push appends a bit, growing the backend by one byte only when the previous
// byte is full.
func (v *BitVector) Push(val bool) error {
	if v.n%8 == 0 {
		if err := v.b.Resize(v.b.Len() + 1); err != nil {
			return err
		}
	}
	if val {
		if err := v.setBit(v.n, true); err != nil {
			return err
		}
	}
	return v.setLen(v.n + 1)
}

// PushN appends n copies of val.
func (v *BitVector) PushN(n int, val bool) error {
	if n <= 0 {
		return nil
	}
	start := v.n
	if err := v.b.Resize(bitVectorHeaderSize + bytesForBits(start+n)); err != nil {
		return err
	}
	if val {
		if err := v.fill(start, start+n, true); err != nil {
			return err
		}
	}
	return v.setLen(start + n)
}

func (v *BitVector) setLen(n int) error {
	if err := writeUint64(v.b, 0, uint64(n)); err != nil {
		return err
	}
	v.n = n
	return nil
}

// SetRange sets bits [from, to) to val.
func (v *BitVector) SetRange(from, to int, val bool) error {
	if from < 0 || from > to || to > v.n {
		return boundsErr(from, to-from, v.n)
	}
	return v.fill(from, to, val)
}

// SetAll sets every bit to val.
func (v *BitVector) SetAll(val bool) error {
	return v.fill(0, v.n, val)
}

func (v *BitVector) fill(from, to int, val bool) error {
	for from < to && from%8 != 0 {
		if err := v.setBit(from, val); err != nil {
			return err
		}
		from++
	}
	if full := (to - from) / 8; full > 0 {
		buf := make([]byte, full)
		if val {
			for i := range buf {
				buf[i] = 0xFF
			}
		}
		if err := v.b.Write(bitVectorHeaderSize+from/8, buf); err != nil {
			return err
		}
		from += full * 8
	}
	for ; from < to; from++ {
		if err := v.setBit(from, val); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of set bits.
func (v *BitVector) Count() (int, error) {
	data, err := v.b.Read(bitVectorHeaderSize, bytesForBits(v.n))
	if err != nil {
		return 0, err
	}
	var c int
	for _, byt := range data {
		c += bits.OnesCount8(byt)
	}
	return c, nil
}

// All iterates over the bits in order. The vector must not be modified
// during iteration. A read error stops the iteration and is reported by Err.
func (v *BitVector) All() iter.Seq2[int, bool] {
	return func(yield func(int, bool) bool) {
		data, err := v.b.Read(bitVectorHeaderSize, bytesForBits(v.n))
		v.err = err
		if err != nil {
			return
		}
		for i := range v.n {
			if !yield(i, data[i/8]&(1<<(i%8)) != 0) {
				return
			}
		}
	}
}

// Bools returns a copy of the bits as a slice.
func (v *BitVector) Bools() ([]bool, error) {
	data, err := v.b.Read(bitVectorHeaderSize, bytesForBits(v.n))
	if err != nil {
		return nil, err
	}
	result := make([]bool, v.n)
	for i := range result {
		result[i] = data[i/8]&(1<<(i%8)) != 0
	}
	return result, nil
}

func (v *BitVector) Flush() error { return v.b.Flush() }

// Err returns the error that stopped the last All iteration, if any.
func (v *BitVector) Err() error { return v.err }
