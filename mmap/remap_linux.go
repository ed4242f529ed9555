package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

const mapPopulate = unix.MAP_POPULATE

func remap(_ *os.File, b []byte, size int, opt Options) ([]byte, error) {
	nb, err := unix.Mremap(b, size, unix.MREMAP_MAYMOVE)
	if err != nil {
		_ = unix.Munmap(b)
		return nil, err
	}
	if err := advise(nb, opt); err != nil {
		_ = unix.Munmap(nb)
		return nil, err
	}
	return nb, nil
}
