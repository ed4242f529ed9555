//go:build windows || (unix && !linux)

package mmap

import "os"

// remap falls back to unmapping and mapping again on systems without mremap.
func remap(f *os.File, b []byte, size int, opt Options) ([]byte, error) {
	if err := munmap(b); err != nil {
		return nil, err
	}
	return mmap(f, size, opt)
}
