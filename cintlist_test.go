package bytestore

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestCompressedIntList(t *testing.T) {
	b := NewMemoryBackend(0)
	l := must(NewCompressedIntList(b))
	values := []uint64{0, 1, 127, 128, 300, 1 << 35, math.MaxUint64, 5}
	for _, v := range values {
		ensure(l.Push(v))
	}

	// 1 + 1 + 1 + 2 + 2 + 6 + 10 + 1
	if l.DataLen() != 24 {
		t.Fatalf("DataLen = %d, wanted 24", l.DataLen())
	}
	for i, v := range values {
		if got := must(l.Get(i)); got != v {
			t.Fatalf("Get(%d) = %d, wanted %d", i, got, v)
		}
	}
	if _, err := l.Get(len(values)); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Get past end err = %v, wanted ErrIndexOutOfBounds", err)
	}

	l = must(NewCompressedIntList(b))
	if got := must(l.Values()); !slices.Equal(got, values) {
		t.Fatalf("Values = %v, wanted %v", got, values)
	}
	var iterated []uint64
	for i, v := range l.All() {
		if i != len(iterated) {
			t.Fatalf("All index %d, wanted %d", i, len(iterated))
		}
		iterated = append(iterated, v)
	}
	if !slices.Equal(iterated, values) {
		t.Fatalf("All = %v, wanted %v", iterated, values)
	}

	ensure(l.Clear())
	if l.Len() != 0 || len(must(l.Values())) != 0 {
		t.Fatalf("list is not empty after Clear")
	}
}

func TestCompressedIntList_SmallValuesAreCompact(t *testing.T) {
	b := NewMemoryBackend(0)
	l := must(NewCompressedIntList(b))
	ensure(l.Reserve(1000))
	for i := range 1000 {
		ensure(l.Push(uint64(i % 100)))
	}
	if l.DataLen() != 1000 {
		t.Fatalf("DataLen = %d, wanted 1000", l.DataLen())
	}
}

func TestCompressedIntList_BadRecord(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))
	must(s.Insert([]byte{0x80}))
	l := must(NewCompressedIntList(b))
	if _, err := l.Get(0); !errors.Is(err, ErrDecode) {
		t.Fatalf("Get err = %v, wanted ErrDecode", err)
	}
}

func TestCompressedIntList_ValueCrossesBoundary(t *testing.T) {
	b := NewMemoryBackend(0)
	l := must(NewCompressedIntList(b))
	ensure(l.Push(300)) // ac 02
	ensure(l.Push(1))   // 01

	for range l.All() {
	}
	if err := l.Err(); err != nil {
		t.Fatalf("Err = %v after a clean iteration", err)
	}

	// a continuation bit makes the first value swallow the second
	ensure(b.Write(offsetIndexHeaderSize+minIndexCapacity*8+1, []byte{0x80}))
	var got []uint64
	for _, v := range l.All() {
		got = append(got, v)
	}
	if len(got) != 0 || !errors.Is(l.Err(), ErrDecode) {
		t.Fatalf("All = %v, Err = %v, wanted nothing and ErrDecode", got, l.Err())
	}
	if _, err := l.Values(); !errors.Is(err, ErrDecode) {
		t.Fatalf("Values err = %v, wanted ErrDecode", err)
	}
	if _, err := l.Get(0); !errors.Is(err, ErrDecode) {
		t.Fatalf("Get(0) err = %v, wanted ErrDecode", err)
	}
}
