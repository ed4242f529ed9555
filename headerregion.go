package bytestore

import (
	"fmt"
)

// HeaderRegion reserves a fixed-size prefix of a backend for an opaque user
// blob and exposes the rest as a plain Backend.
type HeaderRegion struct {
	b    Backend
	size int
}

var _ Backend = (*HeaderRegion)(nil)

// OpenHeaderRegion reserves size bytes at the start of b. An empty backend
// gets a zeroed header; a non-empty one must be at least size bytes long.
func OpenHeaderRegion(b Backend, size int) (*HeaderRegion, error) {
	if size < 0 {
		panic(fmt.Errorf("invalid header size %d", size))
	}
	if b.Len() == 0 {
		if err := b.Resize(size); err != nil {
			return nil, err
		}
	} else if b.Len() < size {
		return nil, corruptf(nil, "region of %d bytes cannot hold a %d-byte header", b.Len(), size)
	}
	return &HeaderRegion{b: b, size: size}, nil
}

func (r *HeaderRegion) HeaderSize() int { return r.size }

// Header returns a view of the header bytes.
func (r *HeaderRegion) Header() ([]byte, error) {
	return r.b.Read(0, r.size)
}

// SetHeader stores data at the start of the header and zeroes the remainder.
func (r *HeaderRegion) SetHeader(data []byte) error {
	if len(data) > r.size {
		return boundsErr(0, len(data), r.size)
	}
	if err := r.b.Write(0, data); err != nil {
		return err
	}
	return fillZero(r.b, len(data), r.size-len(data))
}

// HeaderValue decodes a value stored by SetHeaderValue.
func HeaderValue[T any](r *HeaderRegion, c Codec[T]) (T, error) {
	var zero T
	raw, err := r.Header()
	if err != nil {
		return zero, err
	}
	d := makeByteDecoder(raw)
	n, err := d.Uvarinti()
	if err != nil {
		return zero, err
	}
	payload, err := d.Raw(n)
	if err != nil {
		return zero, err
	}
	return c.Decode(payload)
}

// SetHeaderValue encodes v with c and stores it, length-prefixed, in the header.
func SetHeaderValue[T any](r *HeaderRegion, c Codec[T], v T) error {
	payload, err := c.Encode(nil, v)
	if err != nil {
		return err
	}
	buf := appendUvarint(make([]byte, 0, len(payload)+10), uint64(len(payload)))
	buf = append(buf, payload...)
	return r.SetHeader(buf)
}

func (r *HeaderRegion) Len() int { return r.b.Len() - r.size }
func (r *HeaderRegion) Cap() int { return r.b.Cap() - r.size }

func (r *HeaderRegion) Read(off, n int) ([]byte, error) {
	if err := checkRange(off, n, r.Len()); err != nil {
		return nil, err
	}
	return r.b.Read(r.size+off, n)
}

func (r *HeaderRegion) Write(off int, data []byte) error {
	if err := checkRange(off, len(data), r.Len()); err != nil {
		return err
	}
	return r.b.Write(r.size+off, data)
}

func (r *HeaderRegion) Resize(n int) error {
	if err := checkResize(n); err != nil {
		return err
	}
	return r.b.Resize(r.size + n)
}

func (r *HeaderRegion) Flush() error {
	return r.b.Flush()
}
