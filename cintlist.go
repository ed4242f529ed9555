package bytestore

import (
	"encoding/binary"
	"iter"
)

// CompressedIntList stores unsigned integers as uvarints, so small values
// take fewer bytes. It keeps an offset index (the same layout as
// IndexedStore) so Get is O(1); All decodes the data area sequentially and
// uses the index only to verify value boundaries.
type CompressedIntList struct {
	x   offsetIndex
	err error
}

func NewCompressedIntList(b Backend) (*CompressedIntList, error) {
	x, err := openOffsetIndex(b)
	if err != nil {
		return nil, err
	}
	return &CompressedIntList{x: x}, nil
}

func (l *CompressedIntList) Len() int { return l.x.count }

// DataLen returns the number of bytes used by the encoded values.
func (l *CompressedIntList) DataLen() int { return l.x.dataLen }

func (l *CompressedIntList) Push(v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := l.x.append(buf[:n])
	return err
}

func (l *CompressedIntList) Get(i int) (uint64, error) {
	rec, err := l.x.record(i)
	if err != nil {
		return 0, err
	}
	v, n := binary.Uvarint(rec)
	if n <= 0 || n != len(rec) {
		return 0, dataErrf(rec, 0, ErrDecode, nil, "invalid uvarint at index %d", i)
	}
	return v, nil
}

// Reserve makes room in the index for n values in total.
func (l *CompressedIntList) Reserve(n int) error {
	return l.x.reserve(n)
}

func (l *CompressedIntList) Clear() error {
	return l.x.clear()
}

// All decodes the values in order. A malformed value, or one that does not
// end where the index says it does, stops the iteration and is reported by
// Err.
func (l *CompressedIntList) All() iter.Seq2[int, uint64] {
	return func(yield func(int, uint64) bool) {
		l.err = l.decode(func(i int, v uint64) bool {
			return yield(i, v)
		})
	}
}

// Err returns the error that stopped the last All iteration, if any.
func (l *CompressedIntList) Err() error { return l.err }

// Values decodes every value into a new slice.
func (l *CompressedIntList) Values() ([]uint64, error) {
	values := make([]uint64, 0, l.x.count)
	err := l.decode(func(_ int, v uint64) bool {
		values = append(values, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// decode walks the data area sequentially, checking every value against
// its index entry.
func (l *CompressedIntList) decode(f func(int, uint64) bool) error {
	data, err := l.x.data()
	if err != nil {
		return err
	}
	index, err := l.x.b.Read(offsetIndexHeaderSize, l.x.count*8)
	if err != nil {
		return err
	}
	d := makeByteDecoder(data)
	for i := range l.x.count {
		v, err := d.Uvarint()
		if err != nil {
			return err
		}
		if end := int(getUint64(index[i*8:])); d.Off() != end {
			return dataErrf(data, d.Off(), ErrDecode, nil, "value %d ends at %d, index says %d", i, d.Off(), end)
		}
		if !f(i, v) {
			return nil
		}
	}
	return nil
}

func (l *CompressedIntList) Flush() error { return l.x.b.Flush() }
