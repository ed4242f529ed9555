package bytestore

import (
	"fmt"
	"iter"
	"slices"
)

// FixedList is a growable array of values that all encode to the same
// number of bytes. Element i occupies [i*w, (i+1)*w) of the backend; the
// element count is the backend length divided by w, so the region holds
// nothing but elements.
type FixedList[T any] struct {
	b       Backend
	c       FixedCodec[T]
	w       int
	scratch []byte
	err     error
}

// NewFixedList attaches a list to b. The backend length must be a multiple
// of the codec's width.
func NewFixedList[T any](b Backend, c FixedCodec[T]) (*FixedList[T], error) {
	w := c.Width()
	if w <= 0 {
		return nil, fmt.Errorf("%w: codec width %d", ErrEncodingWidthMismatch, w)
	}
	if b.Len()%w != 0 {
		return nil, corruptf(nil, "region of %d bytes is not a whole number of %d-byte elements", b.Len(), w)
	}
	return &FixedList[T]{b: b, c: c, w: w, scratch: make([]byte, 0, w)}, nil
}

// Width returns the encoded size of one element.
func (l *FixedList[T]) Width() int { return l.w }

func (l *FixedList[T]) Len() int { return l.b.Len() / l.w }

func (l *FixedList[T]) encode(v T) ([]byte, error) {
	buf, err := l.c.Encode(l.scratch[:0], v)
	if err != nil {
		return nil, err
	}
	if len(buf) != l.w {
		return nil, widthErr(fmt.Sprintf("%T value", v), len(buf), l.w)
	}
	l.scratch = buf
	return buf, nil
}

func (l *FixedList[T]) checkIndex(i int) error {
	if n := l.Len(); i < 0 || i >= n {
		return indexErr(i, n)
	}
	return nil
}

// Push appends v. The backend grows its capacity geometrically, so a series
// of pushes is amortized O(1).
func (l *FixedList[T]) Push(v T) error {
	data, err := l.encode(v)
	if err != nil {
		return err
	}
	_, err = appendBytes(l.b, data)
	return err
}

// GetRaw returns a view of the encoded element i.
func (l *FixedList[T]) GetRaw(i int) ([]byte, error) {
	if err := l.checkIndex(i); err != nil {
		return nil, err
	}
	return l.b.Read(i*l.w, l.w)
}

func (l *FixedList[T]) Get(i int) (T, error) {
	raw, err := l.GetRaw(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return l.c.Decode(raw)
}

func (l *FixedList[T]) Set(i int, v T) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	data, err := l.encode(v)
	if err != nil {
		return err
	}
	return l.b.Write(i*l.w, data)
}

// Insert places v at index i, shifting later elements up. i may equal Len.
func (l *FixedList[T]) Insert(i int, v T) error {
	n := l.Len()
	if i < 0 || i > n {
		return indexErr(i, n+1)
	}
	data, err := l.encode(v)
	if err != nil {
		return err
	}
	if err := l.b.Resize((n + 1) * l.w); err != nil {
		return err
	}
	if err := moveBytes(l.b, i*l.w, (i+1)*l.w, (n-i)*l.w); err != nil {
		return err
	}
	return l.b.Write(i*l.w, data)
}

// Remove deletes element i, preserving the order of the others. O(n).
func (l *FixedList[T]) Remove(i int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	n := l.Len()
	if err := moveBytes(l.b, (i+1)*l.w, i*l.w, (n-i-1)*l.w); err != nil {
		return err
	}
	return l.b.Resize((n - 1) * l.w)
}

// SwapRemove deletes element i by moving the last element into its place.
// O(1), but does not preserve order.
func (l *FixedList[T]) SwapRemove(i int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	last := l.Len() - 1
	if i != last {
		if err := moveBytes(l.b, last*l.w, i*l.w, l.w); err != nil {
			return err
		}
	}
	return l.b.Resize(last * l.w)
}

// Pop removes and returns the last element.
func (l *FixedList[T]) Pop() (T, error) {
	last := l.Len() - 1
	v, err := l.Get(last)
	if err != nil {
		return v, err
	}
	return v, l.b.Resize(last * l.w)
}

// Swap exchanges elements i and j.
func (l *FixedList[T]) Swap(i, j int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	if err := l.checkIndex(j); err != nil {
		return err
	}
	if i == j {
		return nil
	}
	a, err := l.b.Read(i*l.w, l.w)
	if err != nil {
		return err
	}
	tmp := slices.Clone(a)
	if err := moveBytes(l.b, j*l.w, i*l.w, l.w); err != nil {
		return err
	}
	return l.b.Write(j*l.w, tmp)
}

// Clear removes every element.
func (l *FixedList[T]) Clear() error {
	return l.b.Resize(0)
}

// SortFunc sorts the list in place using cmp.
func (l *FixedList[T]) SortFunc(cmp func(a, b T) int) error {
	values, err := l.Values()
	if err != nil {
		return err
	}
	slices.SortFunc(values, cmp)
	for i, v := range values {
		if err := l.Set(i, v); err != nil {
			return err
		}
	}
	return nil
}

// Values decodes every element into a new slice.
func (l *FixedList[T]) Values() ([]T, error) {
	n := l.Len()
	values := make([]T, 0, n)
	for i := range n {
		v, err := l.Get(i)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// All iterates over the elements in order. An element that fails to decode
// stops the iteration and is reported by Err.
func (l *FixedList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		l.err = nil
		for i := range l.Len() {
			v, err := l.Get(i)
			if err != nil {
				l.err = err
				return
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// Err returns the error that stopped the last All iteration, if any.
func (l *FixedList[T]) Err() error { return l.err }

func (l *FixedList[T]) Flush() error { return l.b.Flush() }
