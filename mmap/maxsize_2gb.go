//go:build 386 || arm || ppc

package mmap

// MaxSize is the largest mapping this package will create or grow to.
const MaxSize = 0x7FFFFFFF // 2GB
