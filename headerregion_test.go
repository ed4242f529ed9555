package bytestore

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeaderRegion(t *testing.T) {
	parent := NewMemoryBackend(0)
	r := must(OpenHeaderRegion(parent, 12))
	if parent.Len() != 12 || r.Len() != 0 || r.HeaderSize() != 12 {
		t.Fatalf("parent.Len, Len = %d, %d, wanted 12, 0", parent.Len(), r.Len())
	}

	ensure(r.SetHeader([]byte("v1")))
	ensure(r.Resize(4))
	ensure(r.Write(0, []byte("body")))

	if got := string(must(parent.Read(12, 4))); got != "body" {
		t.Fatalf("body lands at parent offset 12, got %q", got)
	}
	if hdr := must(r.Header()); !bytes.Equal(hdr, append([]byte("v1"), make([]byte, 10)...)) {
		t.Fatalf("Header = %q", hdr)
	}

	t.Run("overlong header", func(t *testing.T) {
		if err := r.SetHeader(make([]byte, 13)); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("SetHeader(13 bytes) err = %v, wanted ErrOutOfBounds", err)
		}
	})

	t.Run("shorter header overwrites the tail", func(t *testing.T) {
		ensure(r.SetHeader([]byte("abcdefghijkl")))
		ensure(r.SetHeader([]byte("x")))
		if hdr := must(r.Header()); !bytes.Equal(hdr, append([]byte("x"), make([]byte, 11)...)) {
			t.Fatalf("Header = %q", hdr)
		}
	})

	t.Run("reload", func(t *testing.T) {
		r2 := must(OpenHeaderRegion(parent, 12))
		if got := string(must(r2.Read(0, 4))); got != "body" || r2.Len() != 4 {
			t.Fatalf("reloaded body = %q (len %d)", got, r2.Len())
		}
	})

	t.Run("too short", func(t *testing.T) {
		_, err := OpenHeaderRegion(LoadMemoryBackend(make([]byte, 5)), 12)
		if !errors.Is(err, ErrCorruptHeader) {
			t.Fatalf("err = %v, wanted ErrCorruptHeader", err)
		}
	})
}

type fileInfo struct {
	Version int
	Name    string
}

func TestHeaderValue(t *testing.T) {
	r := must(OpenHeaderRegion(NewMemoryBackend(64), 64))
	ensure(SetHeaderValue(r, MsgPack[fileInfo]{}, fileInfo{3, "users"}))
	got := must(HeaderValue(r, MsgPack[fileInfo]{}))
	if got.Version != 3 || got.Name != "users" {
		t.Fatalf("HeaderValue = %+v", got)
	}

	small := must(OpenHeaderRegion(NewMemoryBackend(0), 4))
	err := SetHeaderValue(small, StringCodec{}, "too long for this header")
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("SetHeaderValue err = %v, wanted ErrOutOfBounds", err)
	}
}

func TestHeaderRegion_HostsStructure(t *testing.T) {
	parent := NewMemoryBackend(0)
	r := must(OpenHeaderRegion(parent, 16))
	ensure(SetHeaderValue(r, IntCodec[uint32]{}, 7))
	bv := must(NewBitVector(r))
	for i := range 20 {
		ensure(bv.Push(i%3 == 0))
	}

	r = must(OpenHeaderRegion(parent, 16))
	bv = must(NewBitVector(r))
	if bv.Len() != 20 || !must(bv.Get(18)) || must(bv.Get(19)) {
		t.Fatalf("bit vector did not survive reload")
	}
	if v := must(HeaderValue(r, IntCodec[uint32]{})); v != 7 {
		t.Fatalf("HeaderValue = %d, wanted 7", v)
	}
}
