package bytestore

import (
	"cmp"
	"errors"
	"slices"
	"testing"
)

func TestFixedList_Operations(t *testing.T) {
	l := must(NewFixedList(NewMemoryBackend(0), IntCodec[int32]{}))
	for _, v := range []int32{5, -1, 7} {
		ensure(l.Push(v))
	}
	ensure(l.Insert(1, 42))
	ensure(l.Insert(4, 9))
	assertList(t, l, 5, 42, -1, 7, 9)

	ensure(l.Remove(0))
	assertList(t, l, 42, -1, 7, 9)

	ensure(l.SwapRemove(0))
	assertList(t, l, 9, -1, 7)

	ensure(l.Swap(0, 2))
	ensure(l.Set(1, 100))
	assertList(t, l, 7, 100, 9)

	ensure(l.SortFunc(cmp.Compare[int32]))
	assertList(t, l, 7, 9, 100)

	if v := must(l.Pop()); v != 100 {
		t.Fatalf("Pop = %d, wanted 100", v)
	}
	assertList(t, l, 7, 9)

	ensure(l.Clear())
	if _, err := l.Pop(); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Pop on empty list err = %v, wanted ErrIndexOutOfBounds", err)
	}
}

func assertList[T comparable](t *testing.T, l *FixedList[T], want ...T) {
	t.Helper()
	got := must(l.Values())
	if !slices.Equal(got, want) {
		t.Fatalf("list = %v, wanted %v", got, want)
	}
	var iterated []T
	for _, v := range l.All() {
		iterated = append(iterated, v)
	}
	if !slices.Equal(iterated, want) {
		t.Fatalf("All = %v, wanted %v", iterated, want)
	}
}

func TestFixedList_Bounds(t *testing.T) {
	l := must(NewFixedList(NewMemoryBackend(0), IntCodec[uint8]{}))
	ensure(l.Push(1))
	if _, err := l.Get(1); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Get(1) err = %v, wanted ErrIndexOutOfBounds", err)
	}
	if err := l.Insert(3, 0); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Insert(3) err = %v, wanted ErrIndexOutOfBounds", err)
	}
	if err := l.Swap(0, 1); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Swap(0, 1) err = %v, wanted ErrIndexOutOfBounds", err)
	}
}

// sloppyCodec claims a width of 4 but encodes short strings as they are.
type sloppyCodec struct{}

func (sloppyCodec) Width() int { return 4 }

func (sloppyCodec) Encode(buf []byte, v string) ([]byte, error) {
	return append(buf, v...), nil
}

func (sloppyCodec) Decode(data []byte) (string, error) {
	return string(data), nil
}

func TestFixedList_WidthMismatch(t *testing.T) {
	b := NewMemoryBackend(0)
	l := must(NewFixedList[string](b, sloppyCodec{}))
	ensure(l.Push("abcd"))

	err := l.Push("abc")
	if !errors.Is(err, ErrEncodingWidthMismatch) {
		t.Fatalf("Push(3 bytes) err = %v, wanted ErrEncodingWidthMismatch", err)
	}
	if err := l.Set(0, "abcde"); !errors.Is(err, ErrEncodingWidthMismatch) {
		t.Fatalf("Set(5 bytes) err = %v, wanted ErrEncodingWidthMismatch", err)
	}
	if l.Len() != 1 || b.Len() != 4 || must(l.Get(0)) != "abcd" {
		t.Fatalf("failed writes changed the list")
	}
}

func TestFixedList_Corrupt(t *testing.T) {
	_, err := NewFixedList(LoadMemoryBackend(make([]byte, 10)), IntCodec[uint32]{})
	if !errors.Is(err, ErrCorruptHeader) {
		t.Fatalf("err = %v, wanted ErrCorruptHeader", err)
	}
}

func TestFixedList_Floats(t *testing.T) {
	b := NewMemoryBackend(0)
	l := must(NewFixedList(b, Float64Codec{}))
	ensure(l.Push(1.5))
	ensure(l.Push(-2.25))
	l = must(NewFixedList(b, Float64Codec{}))
	assertList(t, l, 1.5, -2.25)
}

func TestFixedList_AllReportsDecodeErrors(t *testing.T) {
	b := LoadMemoryBackend([]byte{1, 0, 7, 1})
	l := must(NewFixedList(b, BoolCodec{}))
	var got []bool
	for _, v := range l.All() {
		got = append(got, v)
	}
	if len(got) != 2 || !errors.Is(l.Err(), ErrDecode) {
		t.Fatalf("All = %v, Err = %v, wanted 2 values and ErrDecode", got, l.Err())
	}

	ensure(l.Set(2, false))
	for range l.All() {
	}
	if err := l.Err(); err != nil {
		t.Fatalf("Err = %v after a clean iteration", err)
	}
}
