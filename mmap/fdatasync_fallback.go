//go:build windows || (unix && !plan9 && !linux && !openbsd)

package mmap

import "os"

func fdatasync(f *os.File, mapping []byte) error {
	if err := msync(mapping); err != nil {
		return err
	}
	return f.Sync()
}
