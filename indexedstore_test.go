package bytestore

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIndexedStore_InsertGet(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))

	var want [][]byte
	for i := range 50 {
		rec := bytes.Repeat([]byte{byte(i)}, i%7)
		if id := must(s.Insert(rec)); id != i {
			t.Fatalf("Insert returned %d, wanted %d", id, i)
		}
		want = append(want, rec)
	}
	check := func(s *IndexedStore) {
		t.Helper()
		if s.Len() != len(want) {
			t.Fatalf("Len = %d, wanted %d", s.Len(), len(want))
		}
		for i, w := range want {
			if got := must(s.Get(i)); !bytes.Equal(got, w) {
				t.Fatalf("Get(%d) = %x, wanted %x", i, got, w)
			}
		}
		var n int
		for i, rec := range s.All() {
			if !bytes.Equal(rec, want[i]) {
				t.Fatalf("All[%d] = %x, wanted %x", i, rec, want[i])
			}
			n++
		}
		if n != len(want) {
			t.Fatalf("All yielded %d records, wanted %d", n, len(want))
		}
	}
	check(s)
	check(must(NewIndexedStore(b)))

	if _, err := s.Get(50); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Get(50) err = %v, wanted ErrIndexOutOfBounds", err)
	}
	if _, err := s.Get(-1); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Get(-1) err = %v, wanted ErrIndexOutOfBounds", err)
	}
}

func TestIndexedStore_Layout(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))
	must(s.Insert([]byte("ab")))
	must(s.Insert([]byte("")))
	must(s.Insert([]byte("cde")))

	raw := readAll(t, b)
	if getUint64(raw) != 3 || getUint64(raw[8:]) != minIndexCapacity {
		t.Fatalf("header = %x", raw[:16])
	}
	ends := []uint64{2, 2, 5}
	for i, e := range ends {
		if got := getUint64(raw[16+i*8:]); got != e {
			t.Fatalf("index[%d] = %d, wanted %d", i, got, e)
		}
	}
	if data := string(raw[16+minIndexCapacity*8:]); data != "abcde" {
		t.Fatalf("data area = %q, wanted abcde", data)
	}
	if s.DataLen() != 5 {
		t.Fatalf("DataLen = %d, wanted 5", s.DataLen())
	}
}

func TestIndexedStore_ReserveAndClear(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))
	must(s.Insert([]byte("keep")))
	ensure(s.Reserve(100))
	if got := string(must(s.Get(0))); got != "keep" {
		t.Fatalf("Get(0) = %q after Reserve", got)
	}
	before := b.Len()
	for i := range 99 {
		must(s.Insert([]byte{byte(i)}))
	}
	if b.Len() != before+99 {
		t.Fatalf("Len grew by %d, wanted 99 (no index growth)", b.Len()-before)
	}

	ensure(s.Clear())
	if s.Len() != 0 || s.DataLen() != 0 {
		t.Fatalf("Len, DataLen = %d, %d after Clear", s.Len(), s.DataLen())
	}
	must(s.Insert([]byte("again")))
	s = must(NewIndexedStore(b))
	if s.Len() != 1 || string(must(s.Get(0))) != "again" {
		t.Fatalf("store after Clear and reload is wrong")
	}
}

type event struct {
	Kind string
	At   int64
	Tags []string
}

func TestIndexedStore_TypedValues(t *testing.T) {
	s := must(NewIndexedStore(NewMemoryBackend(0)))
	for i := range 5 {
		must(InsertT(s, event{Kind: fmt.Sprint("k", i), At: int64(i) * 1000, Tags: []string{"x"}}))
	}
	id := must(InsertValue(s, StringCodec{}, "plain"))

	e := must(GetT[event](s, 3))
	if e.Kind != "k3" || e.At != 3000 || len(e.Tags) != 1 {
		t.Fatalf("GetT(3) = %+v", e)
	}
	if v := must(GetValue(s, StringCodec{}, id)); v != "plain" {
		t.Fatalf("GetValue = %q, wanted plain", v)
	}
	if _, err := GetT[event](s, id); !errors.Is(err, ErrDecode) {
		t.Fatalf("GetT on a string record err = %v, wanted ErrDecode", err)
	}
}

func TestIndexedStore_Corrupt(t *testing.T) {
	hdr := func(count, icap uint64, ends []uint64, data int) []byte {
		buf := make([]byte, 16+int(icap)*8+data)
		putUint64(buf, count)
		putUint64(buf[8:], icap)
		for i, e := range ends {
			putUint64(buf[16+i*8:], e)
		}
		return buf
	}
	tests := []struct {
		name string
		buf  []byte
	}{
		{"short", make([]byte, 9)},
		{"index past end", hdr(0, 100, nil, 0)[:40]},
		{"count above capacity", hdr(3, 2, nil, 0)},
		{"decreasing", hdr(2, 2, []uint64{4, 3}, 4)},
		{"wrong data length", hdr(1, 2, []uint64{3}, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIndexedStore(LoadMemoryBackend(tt.buf))
			if !errors.Is(err, ErrCorruptHeader) {
				t.Fatalf("err = %v, wanted ErrCorruptHeader", err)
			}
		})
	}
}

func checkRecords(t *testing.T, s *IndexedStore, want ...string) {
	t.Helper()
	if s.Len() != len(want) {
		t.Fatalf("Len = %d, wanted %d", s.Len(), len(want))
	}
	var total int
	for i, w := range want {
		if got := string(must(s.Get(i))); got != w {
			t.Fatalf("Get(%d) = %q, wanted %q", i, got, w)
		}
		total += len(w)
	}
	if s.DataLen() != total {
		t.Fatalf("DataLen = %d, wanted %d", s.DataLen(), total)
	}
}

func TestIndexedStore_InsertN(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))
	must(s.Insert([]byte("first")))

	var recs [][]byte
	want := []string{"first"}
	for i := range 20 {
		r := strings.Repeat(string(rune('a'+i)), i%4)
		recs = append(recs, []byte(r))
		want = append(want, r)
	}
	if first := must(s.InsertN(recs)); first != 1 {
		t.Fatalf("InsertN returned %d, wanted 1", first)
	}
	checkRecords(t, s, want...)
	checkRecords(t, must(NewIndexedStore(b)), want...)

	if first := must(s.InsertN(nil)); first != 21 {
		t.Fatalf("InsertN(nil) returned %d, wanted 21", first)
	}
}

func TestIndexedStore_InsertAt(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))
	must(s.Insert([]byte("a")))
	must(s.Insert([]byte("ccc")))

	ensure(s.InsertAt(1, []byte("bb")))
	ensure(s.InsertAt(0, nil))
	ensure(s.InsertAt(4, []byte("dddd")))
	checkRecords(t, s, "", "a", "bb", "ccc", "dddd")

	// front insertions past the index capacity
	want := []string{"", "a", "bb", "ccc", "dddd"}
	for i := range 10 {
		r := fmt.Sprint("x", i)
		ensure(s.InsertAt(0, []byte(r)))
		want = append([]string{r}, want...)
	}
	checkRecords(t, s, want...)
	checkRecords(t, must(NewIndexedStore(b)), want...)

	if err := s.InsertAt(s.Len()+1, []byte("z")); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("InsertAt past end err = %v, wanted ErrIndexOutOfBounds", err)
	}
	if err := s.InsertAt(-1, []byte("z")); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("InsertAt(-1) err = %v, wanted ErrIndexOutOfBounds", err)
	}
}

func TestIndexedStore_ResizeRecords(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))
	must(s.InsertN([][]byte{[]byte("one"), []byte("two"), []byte("three")}))

	ensure(s.Set(1, []byte("second")))
	checkRecords(t, s, "one", "second", "three")
	ensure(s.Set(1, []byte("2")))
	checkRecords(t, s, "one", "2", "three")
	ensure(s.Set(2, nil))
	checkRecords(t, s, "one", "2", "")

	ensure(s.Grow(0, 2))
	checkRecords(t, s, "one\x00\x00", "2", "")
	ensure(s.Extend(1, []byte("nd")))
	ensure(s.Extend(2, []byte("3rd")))
	checkRecords(t, s, "one\x00\x00", "2nd", "3rd")

	ensure(s.Swap(0, 2))
	checkRecords(t, s, "3rd", "2nd", "one\x00\x00")
	checkRecords(t, must(NewIndexedStore(b)), "3rd", "2nd", "one\x00\x00")

	if err := s.Set(3, nil); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Set(3) err = %v, wanted ErrIndexOutOfBounds", err)
	}
	if err := s.Grow(0, -1); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Grow(0, -1) err = %v, wanted ErrOutOfBounds", err)
	}
	if err := s.Swap(0, 5); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("Swap(0, 5) err = %v, wanted ErrIndexOutOfBounds", err)
	}
}

func TestIndexedStore_SelfReferencingWrites(t *testing.T) {
	b := NewMemoryBackend(4096)
	s := must(NewIndexedStore(b))
	for range minIndexCapacity {
		must(s.Insert([]byte("abc")))
	}
	// the index is full, so this insert moves the data area under the view
	id := must(s.Insert(must(s.Get(0))))
	if got := string(must(s.Get(id))); got != "abc" {
		t.Fatalf("Get(%d) = %q, wanted abc", id, got)
	}

	must(s.Insert([]byte("longer record")))
	ensure(s.Set(0, must(s.Get(id+1))))
	if got := string(must(s.Get(0))); got != "longer record" {
		t.Fatalf("Get(0) after Set = %q, wanted %q", got, "longer record")
	}
	ensure(s.InsertAt(1, must(s.Get(2))))
	if got := string(must(s.Get(1))); got != "abc" {
		t.Fatalf("Get(1) after InsertAt = %q, wanted abc", got)
	}
}

func TestIndexedStore_ShrinkToFit(t *testing.T) {
	b := NewMemoryBackend(0)
	s := must(NewIndexedStore(b))
	ensure(s.Reserve(100))
	must(s.InsertN([][]byte{[]byte("ab"), []byte("cd"), []byte("e")}))

	ensure(s.ShrinkToFit())
	if want := offsetIndexHeaderSize + 3*8 + 5; b.Len() != want {
		t.Fatalf("backend Len = %d, wanted %d", b.Len(), want)
	}
	checkRecords(t, must(NewIndexedStore(b)), "ab", "cd", "e")

	must(s.Insert([]byte("fgh")))
	checkRecords(t, s, "ab", "cd", "e", "fgh")
	checkRecords(t, must(NewIndexedStore(b)), "ab", "cd", "e", "fgh")
}

func TestIndexedStore_AllReportsReadErrors(t *testing.T) {
	fb := &faultyBackend{Backend: NewMemoryBackend(0)}
	s := must(NewIndexedStore(fb))
	must(s.Insert([]byte("x")))

	for range s.All() {
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Err = %v after a clean iteration", err)
	}

	fb.readErr = ErrIO
	var n int
	for range s.All() {
		n++
	}
	if n != 0 || !errors.Is(s.Err(), ErrIO) {
		t.Fatalf("All yielded %d records, Err = %v, wanted 0 and ErrIO", n, s.Err())
	}
}
