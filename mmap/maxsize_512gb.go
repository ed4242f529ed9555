//go:build mips64 || mips64le

package mmap

// MaxSize is the largest mapping this package will create or grow to.
const MaxSize = 0x8000000000 // 512GB
