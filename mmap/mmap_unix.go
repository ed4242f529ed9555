//go:build unix

package mmap

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func mmap(f *os.File, size int, opt Options) ([]byte, error) {
	prot := unix.PROT_READ
	if opt.Has(Writable) {
		prot |= unix.PROT_WRITE
	}

	flags := unix.MAP_SHARED
	if opt.Has(Prefault) {
		flags |= mapPopulate
	}

	b, err := unix.Mmap(int(f.Fd()), 0, size, prot, flags)
	if err != nil {
		return nil, err
	}

	if err := advise(b, opt); err != nil {
		_ = unix.Munmap(b)
		return nil, err
	}
	return b, nil
}

func advise(b []byte, opt Options) error {
	var advice int
	var name string
	switch {
	case opt.Has(SequentialAccess):
		advice, name = unix.MADV_SEQUENTIAL, "MADV_SEQUENTIAL"
	case opt.Has(RandomAccess):
		advice, name = unix.MADV_RANDOM, "MADV_RANDOM"
	default:
		return nil
	}
	err := unix.Madvise(b, advice)
	if err != nil && err != syscall.ENOSYS {
		// ENOSYS is ignored because the mapping still works without the hint.
		return fmt.Errorf("madvise(%s): %w", name, err)
	}
	return nil
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}

func msync(b []byte) error {
	if b == nil {
		return nil
	}
	return unix.Msync(b, unix.MS_SYNC)
}
