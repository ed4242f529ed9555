package bytestore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO is matched by every error caused by a failing OS-level storage
	// operation (file truncation, mapping, syncing).
	ErrIO = errors.New("storage I/O failed")

	ErrOutOfBounds      = errors.New("out of bounds")
	ErrIndexOutOfBounds = fmt.Errorf("index %w", ErrOutOfBounds)

	ErrAllocationFailed = errors.New("allocation failed")
	ErrCapacityExceeded = fmt.Errorf("capacity exceeded: %w", ErrAllocationFailed)
	ErrDirectoryFull    = fmt.Errorf("directory full: %w", ErrAllocationFailed)

	ErrCorruptHeader         = errors.New("corrupt header")
	ErrEncodingWidthMismatch = errors.New("encoding width mismatch")
	ErrDecode                = errors.New("cannot decode")
)

// DataError describes a problem with stored bytes: a header that fails
// validation or a record that does not decode. Kind is one of the sentinel
// errors (ErrCorruptHeader, ErrDecode) and Err is the underlying cause, if any.
type DataError struct {
	Data []byte
	Off  int
	Kind error
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, kind, err error, format string, args ...any) error {
	return &DataError{data, off, kind, err, fmt.Sprintf(format, args...)}
}

func corruptf(data []byte, format string, args ...any) error {
	return &DataError{data, 0, ErrCorruptHeader, nil, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32

	var buf strings.Builder
	buf.WriteString(e.Kind.Error())
	buf.WriteString(": ")
	buf.WriteString(e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}

	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		fmt.Fprintf(&buf, ": (%d) %x", n, e.Data)
	} else {
		fmt.Fprintf(&buf, ": (%d) %x...%x", n, e.Data[:prefixLen], e.Data[n-suffixLen:])
	}
	if e.Off != 0 {
		fmt.Fprintf(&buf, " at %d", e.Off)
	}
	return buf.String()
}

// IOError wraps a failed OS-level operation on a file-backed region.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func ioErr(op, path string, err error) error {
	return &IOError{op, path, err}
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("bytestore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("bytestore: %s %s: %v", e.Op, e.Path, e.Err)
}

func boundsErr(off, n, length int) error {
	return fmt.Errorf("%w: range [%d, %d) exceeds length %d", ErrOutOfBounds, off, off+n, length)
}

func indexErr(i, count int) error {
	return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfBounds, i, count)
}

func widthErr(what string, got, want int) error {
	return fmt.Errorf("%w: %s encodes to %d bytes, wanted %d", ErrEncodingWidthMismatch, what, got, want)
}
