// Package mmap wraps the OS memory-mapping primitives used by bytestore's
// file-backed regions: map, unmap, remap and a durability sync.
package mmap

import (
	"os"
)

type Options uint

const (
	// Writable maps the file for writing (otherwise, it's mapped read-only).
	Writable Options = 1 << 0

	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 1

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess Options = 1 << 2

	// Prefault is a hint requesting the entire file to be loaded in memory
	// for fastest access. Maps to MAP_POPULATE on Linux.
	Prefault Options = 1 << 3
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Mmap maps the first size bytes of f into memory. The file must already be at
// least size bytes long.
func Mmap(f *os.File, size int, opt Options) ([]byte, error) {
	if size <= 0 || size > MaxSize {
		return nil, os.ErrInvalid
	}
	return mmap(f, size, opt)
}

// Munmap unmaps the given slice from memory. The slice must have been returned
// by Mmap or Remap.
func Munmap(b []byte) error {
	return munmap(b)
}

// Remap changes the size of an existing mapping of f, which the caller must
// already have truncated to at least size bytes. The mapping may move, so b
// and every slice derived from it must not be used after Remap returns,
// whether or not it succeeds. On failure the old mapping is released.
func Remap(f *os.File, b []byte, size int, opt Options) ([]byte, error) {
	if size <= 0 || size > MaxSize {
		return nil, os.ErrInvalid
	}
	return remap(f, b, size, opt)
}

// Fdatasync triggers the fastest fsync-like operation that ensures durability
// of the data written to the given file and/or memory mapping.
//
// Fdatasync might be faster than f.Sync() aka fsync thanks to not syncing
// metadata (last modification/access time) that isn't necessary to ensure
// durability of the data.
//
// If mapping is provided, it's an mmap'ed slice corresponding to the given
// file, in case the operating system supports an alternative interface for
// syncing mmap'ed data.
//
// WARNING: ERRORS RETURNED BY THIS FUNCTION ARE NOT RECOVERABLE. Many operating
// systems and file systems mark modified pages as clean in case of fsync
// failures, so the only sensible handling is to treat the file as suspect.
func Fdatasync(f *os.File, mapping []byte) error {
	return fdatasync(f, mapping)
}
