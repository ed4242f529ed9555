package bytestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/andreyvit/bytestore/mmap"
)

// lengthPrefixSize is the size of the logical length stored at the start of
// a mapped file; the region itself starts right after it.
const lengthPrefixSize = 8

const DefaultMappedCapacity = 4096 - lengthPrefixSize

type MappedOptions struct {
	// InitialCapacity is the region capacity of a newly created file.
	InitialCapacity int

	// ReadOnly maps the file without write access; Write and Resize fail.
	ReadOnly bool

	// Advice is passed to mmap (SequentialAccess, RandomAccess, Prefault).
	// Writable is implied unless ReadOnly is set.
	Advice mmap.Options

	Logger *slog.Logger
}

// MappedBackend is a Backend over a memory-mapped file. The file holds the
// logical length as a little-endian uint64 followed by the region; the file
// size, minus the prefix, is the capacity.
//
// Growing past the capacity truncates the file and remaps it, which may move
// the mapping: every view returned by Read before that is invalid afterwards.
type MappedBackend struct {
	f      *os.File
	path   string
	data   []byte
	length int
	opt    mmap.Options
	ro     bool
	logger *slog.Logger
}

var _ Backend = (*MappedBackend)(nil)

// Replaced in tests.
var (
	mapFile   = mmap.Mmap
	remapFile = mmap.Remap
)

// OpenMapped maps the file at path, creating it with an empty region if it
// does not exist or is empty.
func OpenMapped(path string, o MappedOptions) (*MappedBackend, error) {
	flag := os.O_RDWR | os.O_CREATE
	if o.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0666)
	if err != nil {
		return nil, ioErr("open", path, err)
	}
	m, err := attachMapped(f, path, o)
	if err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

// CreateMapped creates the file at path, discarding any existing content.
func CreateMapped(path string, o MappedOptions) (*MappedBackend, error) {
	if o.ReadOnly {
		return nil, ioErr("create", path, os.ErrInvalid)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, ioErr("create", path, err)
	}
	m, err := attachMapped(f, path, o)
	if err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

func attachMapped(f *os.File, path string, o MappedOptions) (*MappedBackend, error) {
	if o.InitialCapacity <= 0 {
		o.InitialCapacity = DefaultMappedCapacity
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	opt := o.Advice &^ mmap.Writable
	if !o.ReadOnly {
		opt |= mmap.Writable
	}

	st, err := f.Stat()
	if err != nil {
		return nil, ioErr("stat", path, err)
	}
	size := st.Size()
	if size == 0 {
		if o.ReadOnly {
			return nil, corruptf(nil, "%s: empty file", path)
		}
		size = int64(lengthPrefixSize + o.InitialCapacity)
		if err := f.Truncate(size); err != nil {
			return nil, ioErr("truncate", path, err)
		}
	} else if size < lengthPrefixSize {
		return nil, corruptf(nil, "%s: file size %d is below the %d-byte length prefix", path, size, lengthPrefixSize)
	}
	if size > mmap.MaxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrAllocationFailed, path, size)
	}

	data, err := mmap.Mmap(f, int(size), opt)
	if err != nil {
		return nil, ioErr("mmap", path, err)
	}

	length := getUint64(data)
	if length > uint64(len(data)-lengthPrefixSize) {
		_ = mmap.Munmap(data)
		return nil, corruptf(data[:lengthPrefixSize], "%s: length %d exceeds capacity %d", path, length, len(data)-lengthPrefixSize)
	}

	return &MappedBackend{
		f:      f,
		path:   path,
		data:   data,
		length: int(length),
		opt:    opt,
		ro:     o.ReadOnly,
		logger: o.Logger,
	}, nil
}

func (m *MappedBackend) Path() string { return m.path }

func (m *MappedBackend) Len() int { return m.length }

func (m *MappedBackend) Cap() int {
	if m.data == nil {
		return 0
	}
	return len(m.data) - lengthPrefixSize
}

func (m *MappedBackend) Read(off, n int) ([]byte, error) {
	if m.data == nil {
		return nil, ioErr("read", m.path, os.ErrClosed)
	}
	if err := checkRange(off, n, m.length); err != nil {
		return nil, err
	}
	start := lengthPrefixSize + off
	return m.data[start : start+n : start+n], nil
}

func (m *MappedBackend) Write(off int, data []byte) error {
	if m.ro {
		return ioErr("write", m.path, os.ErrPermission)
	}
	if m.data == nil {
		return ioErr("write", m.path, os.ErrClosed)
	}
	if err := checkRange(off, len(data), m.length); err != nil {
		return err
	}
	copy(m.data[lengthPrefixSize+off:], data)
	return nil
}

func (m *MappedBackend) Resize(n int) error {
	if m.ro {
		return ioErr("resize", m.path, os.ErrPermission)
	}
	if err := checkResize(n); err != nil {
		return err
	}
	if m.data == nil {
		return ioErr("resize", m.path, os.ErrClosed)
	}
	if n > m.Cap() {
		if err := m.grow(nextCapacity(m.Cap(), n)); err != nil {
			return err
		}
	}
	if n > m.length {
		clear(m.data[lengthPrefixSize+m.length : lengthPrefixSize+n])
	}
	m.length = n
	putUint64(m.data, uint64(n))
	return nil
}

func (m *MappedBackend) grow(capacity int) error {
	size := lengthPrefixSize + capacity
	if size > mmap.MaxSize {
		return fmt.Errorf("%w: %s would grow to %d bytes", ErrAllocationFailed, m.path, size)
	}
	oldSize := len(m.data)
	if err := m.f.Truncate(int64(size)); err != nil {
		return ioErr("truncate", m.path, err)
	}
	data, err := remapFile(m.f, m.data, size, m.opt)
	if err != nil {
		// Remap released the old mapping; restore the previous size so the
		// region stays usable.
		old, rerr := mapFile(m.f, oldSize, m.opt)
		if rerr != nil {
			m.data = nil
			return ioErr("remap", m.path, errors.Join(err, fmt.Errorf("restoring %d-byte mapping: %w", oldSize, rerr)))
		}
		m.data = old
		return ioErr("remap", m.path, err)
	}
	m.data = data
	m.logger.LogAttrs(context.Background(), slog.LevelDebug, "bytestore: remapped file",
		slog.String("file", m.path), slog.Int("from", oldSize), slog.Int("to", size))
	return nil
}

// Flush syncs the mapping to disk.
func (m *MappedBackend) Flush() error {
	if m.ro {
		return nil
	}
	if m.data == nil {
		return ioErr("flush", m.path, os.ErrClosed)
	}
	if err := mmap.Fdatasync(m.f, m.data); err != nil {
		return ioErr("fdatasync", m.path, err)
	}
	return nil
}

// Close unmaps and closes the file. It does not flush.
func (m *MappedBackend) Close() error {
	var errs []error
	if m.data != nil {
		if err := mmap.Munmap(m.data); err != nil {
			errs = append(errs, ioErr("munmap", m.path, err))
		}
		m.data = nil
	}
	if m.f != nil {
		if err := m.f.Close(); err != nil {
			errs = append(errs, ioErr("close", m.path, err))
		}
		m.f = nil
	}
	return errors.Join(errs...)
}
