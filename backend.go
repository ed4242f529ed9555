package bytestore

import "fmt"

// Backend is a contiguous, resizable byte region. Offsets are relative to the
// start of the region and stay valid across Resize; slices returned by Read
// do not, see the package documentation.
type Backend interface {
	// Read returns a view of [off, off+n). The view aliases the backend's
	// storage and is valid only until the next mutation of the underlying
	// allocation.
	Read(off, n int) ([]byte, error)

	// Write copies data to [off, off+len(data)). It never grows the region.
	Write(off int, data []byte) error

	// Resize sets the logical length, preserving [0, min(old, n)). Bytes
	// added by growth read as zero.
	Resize(n int) error

	// Flush persists the content to durable storage, if there is any.
	Flush() error

	// Len returns the logical length of the region.
	Len() int

	// Cap returns the number of bytes the region can hold without
	// reallocating.
	Cap() int
}

func checkRange(off, n, length int) error {
	if off < 0 || n < 0 || off+n > length {
		return boundsErr(off, n, length)
	}
	return nil
}

func checkResize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", ErrOutOfBounds, n)
	}
	return nil
}

func readUint64(b Backend, off int) (uint64, error) {
	v, err := b.Read(off, 8)
	if err != nil {
		return 0, err
	}
	return getUint64(v), nil
}

func writeUint64(b Backend, off int, v uint64) error {
	var buf [8]byte
	putUint64(buf[:], v)
	return b.Write(off, buf[:])
}

// appendBytes grows b by len(data) and writes data at the old end.
func appendBytes(b Backend, data []byte) (int, error) {
	off := b.Len()
	if err := b.Resize(off + len(data)); err != nil {
		return 0, err
	}
	if err := b.Write(off, data); err != nil {
		return 0, err
	}
	return off, nil
}

// moveBytes copies [from, from+n) to [to, to+n). The ranges may overlap.
func moveBytes(b Backend, from, to, n int) error {
	if n == 0 || from == to {
		return nil
	}
	src, err := b.Read(from, n)
	if err != nil {
		return err
	}
	return b.Write(to, src)
}

var zeroes [512]byte

func fillZero(b Backend, off, n int) error {
	for n > 0 {
		chunk := min(n, len(zeroes))
		if err := b.Write(off, zeroes[:chunk]); err != nil {
			return err
		}
		off += chunk
		n -= chunk
	}
	return nil
}
