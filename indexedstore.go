package bytestore

import (
	"bytes"
	"fmt"
	"iter"
)

// IndexedStore is an array of variable-length records with an offset index
// for O(1) random access. See offsetIndex for the layout.
//
// Appending is cheap. Inserting in the middle or resizing a record moves
// every later record. Records cannot be removed; rebuilding the store is the
// only way to reclaim their space.
//
// Data passed to the mutating methods may be a view returned by Get on the
// same store.
type IndexedStore struct {
	x   offsetIndex
	err error
}

// NewIndexedStore initializes a store on an empty backend or validates and
// attaches to an existing one.
func NewIndexedStore(b Backend) (*IndexedStore, error) {
	x, err := openOffsetIndex(b)
	if err != nil {
		return nil, err
	}
	return &IndexedStore{x: x}, nil
}

func (s *IndexedStore) Len() int { return s.x.count }

// DataLen returns the total size of all records.
func (s *IndexedStore) DataLen() int { return s.x.dataLen }

// Insert appends a record and returns its index.
func (s *IndexedStore) Insert(data []byte) (int, error) {
	return s.x.append(data)
}

// InsertN appends records in one go and returns the index of the first.
func (s *IndexedStore) InsertN(records [][]byte) (int, error) {
	return s.x.appendN(records)
}

// InsertAt places data at position i, shifting records i and later up by
// one. i may equal Len.
func (s *IndexedStore) InsertAt(i int, data []byte) error {
	return s.x.insertAt(i, data)
}

// Set replaces record i, growing or shrinking it as needed.
func (s *IndexedStore) Set(i int, data []byte) error {
	return s.x.set(i, data)
}

// Grow extends record i by n zero bytes.
func (s *IndexedStore) Grow(i, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: cannot grow a record by %d bytes", ErrOutOfBounds, n)
	}
	start, end, err := s.x.span(i)
	if err != nil {
		return err
	}
	_, err = s.x.resizeRecord(i, end-start+n)
	return err
}

// Extend appends data to the end of record i.
func (s *IndexedStore) Extend(i int, data []byte) error {
	return s.x.extend(i, data)
}

// Swap exchanges the contents of records i and j.
func (s *IndexedStore) Swap(i, j int) error {
	if i == j {
		_, _, err := s.x.span(i)
		return err
	}
	a, err := s.x.record(i)
	if err != nil {
		return err
	}
	b, err := s.x.record(j)
	if err != nil {
		return err
	}
	a, b = bytes.Clone(a), bytes.Clone(b)
	if err := s.x.set(i, b); err != nil {
		return err
	}
	return s.x.set(j, a)
}

// Get returns a view of record i.
func (s *IndexedStore) Get(i int) ([]byte, error) {
	return s.x.record(i)
}

// Reserve makes room in the index for n records in total, so that appending
// up to n records does not move the data area.
func (s *IndexedStore) Reserve(n int) error {
	return s.x.reserve(n)
}

// ShrinkToFit releases unused index slots.
func (s *IndexedStore) ShrinkToFit() error {
	return s.x.shrinkToFit()
}

// Clear drops all records.
func (s *IndexedStore) Clear() error {
	return s.x.clear()
}

// All iterates over the records in order. The store must not be modified
// during iteration. A read error stops the iteration and is reported by Err.
func (s *IndexedStore) All() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		s.err = nil
		for i := range s.x.count {
			rec, err := s.x.record(i)
			if err != nil {
				s.err = err
				return
			}
			if !yield(i, rec) {
				return
			}
		}
	}
}

// Err returns the error that stopped the last All iteration, if any.
func (s *IndexedStore) Err() error { return s.err }

func (s *IndexedStore) Flush() error { return s.x.b.Flush() }

// InsertValue encodes v with c and appends it.
func InsertValue[T any](s *IndexedStore, c Codec[T], v T) (int, error) {
	data, err := c.Encode(nil, v)
	if err != nil {
		return 0, err
	}
	return s.Insert(data)
}

// GetValue decodes record i with c.
func GetValue[T any](s *IndexedStore, c Codec[T], i int) (T, error) {
	rec, err := s.Get(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Decode(rec)
}

// InsertT appends v encoded with MessagePack.
func InsertT[T any](s *IndexedStore, v T) (int, error) {
	return InsertValue(s, MsgPack[T]{}, v)
}

// GetT decodes record i as MessagePack.
func GetT[T any](s *IndexedStore, i int) (T, error) {
	return GetValue(s, MsgPack[T]{}, i)
}
