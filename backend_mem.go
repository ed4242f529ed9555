package bytestore

import (
	"fmt"

	"github.com/andreyvit/bytestore/mmap"
)

// MemoryBackend is a Backend over an in-process growable buffer.
type MemoryBackend struct {
	buf []byte
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty region with the given initial capacity.
func NewMemoryBackend(capacity int) *MemoryBackend {
	return &MemoryBackend{buf: make([]byte, 0, capacity)}
}

// LoadMemoryBackend returns a region holding data, for reattaching to bytes
// produced earlier (for example, by Bytes). The backend takes ownership of data.
func LoadMemoryBackend(data []byte) *MemoryBackend {
	return &MemoryBackend{buf: data}
}

// Bytes returns the region's content. The slice aliases the backend.
func (m *MemoryBackend) Bytes() []byte {
	return m.buf
}

func (m *MemoryBackend) Len() int { return len(m.buf) }
func (m *MemoryBackend) Cap() int { return cap(m.buf) }

func (m *MemoryBackend) Flush() error { return nil }

func (m *MemoryBackend) Read(off, n int) ([]byte, error) {
	if err := checkRange(off, n, len(m.buf)); err != nil {
		return nil, err
	}
	return m.buf[off : off+n : off+n], nil
}

func (m *MemoryBackend) Write(off int, data []byte) error {
	if err := checkRange(off, len(data), len(m.buf)); err != nil {
		return err
	}
	copy(m.buf[off:], data)
	return nil
}

func (m *MemoryBackend) Resize(n int) error {
	if err := checkResize(n); err != nil {
		return err
	}
	if n > mmap.MaxSize {
		return fmt.Errorf("%w: %d bytes requested", ErrAllocationFailed, n)
	}
	old := len(m.buf)
	m.buf = ensureCapacity(m.buf, n)[:n]
	if n > old {
		clear(m.buf[old:])
	}
	return nil
}
