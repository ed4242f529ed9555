package bytestore

import (
	"fmt"
)

const (
	DefaultMultiReserved = 16

	multiHeaderSize = 16
	descriptorSize  = 16
)

type MultiOptions struct {
	// Reserved is the number of descriptor slots allocated when the
	// directory is created. Ignored when loading an existing region.
	Reserved int
}

// Region is a byte range within a parent backend.
type Region struct {
	Offset int
	Length int
}

func (r Region) End() int { return r.Offset + r.Length }

// MultiRegion divides a backend into any number of independently growable
// parts, each described by an entry of a directory at the start of the
// backend:
//
//	[0, 8)    count
//	[8, 16)   reserved
//	reserved × {offset u64, length u64}
//	data area
//
// Parts are laid out back to back in insertion order. New parts start at the
// end of the data area, so inserting never moves existing data; growing part
// k moves every part after it.
type MultiRegion struct {
	b        Backend
	reserved int
	parts    []Region
}

// MultiPart is one part of a MultiRegion. It implements Backend.
type MultiPart struct {
	r  *MultiRegion
	id int
}

var _ Backend = (*MultiPart)(nil)

// OpenMultiRegion initializes an empty directory on an empty backend, or
// loads and validates an existing one.
func OpenMultiRegion(b Backend, o MultiOptions) (*MultiRegion, error) {
	if o.Reserved <= 0 {
		o.Reserved = DefaultMultiReserved
	}
	if b.Len() == 0 {
		r := &MultiRegion{b: b, reserved: o.Reserved}
		if err := b.Resize(r.dataStart()); err != nil {
			return nil, err
		}
		if err := writeUint64(b, 8, uint64(r.reserved)); err != nil {
			return nil, err
		}
		return r, nil
	}
	return loadMultiRegion(b)
}

func loadMultiRegion(b Backend) (*MultiRegion, error) {
	if b.Len() < multiHeaderSize {
		return nil, corruptf(nil, "multi region of %d bytes is shorter than its header", b.Len())
	}
	hdr, err := b.Read(0, multiHeaderSize)
	if err != nil {
		return nil, err
	}
	count, reserved := getUint64(hdr), getUint64(hdr[8:])
	if reserved == 0 || reserved > uint64((b.Len()-multiHeaderSize)/descriptorSize) {
		return nil, corruptf(hdr, "%d reserved descriptors do not fit into %d bytes", reserved, b.Len())
	}
	if count > reserved {
		return nil, corruptf(hdr, "directory holds %d descriptors but reserves %d", count, reserved)
	}

	r := &MultiRegion{b: b, reserved: int(reserved), parts: make([]Region, 0, count)}
	dir, err := b.Read(multiHeaderSize, int(count)*descriptorSize)
	if err != nil {
		return nil, err
	}
	end := uint64(r.dataStart())
	limit := uint64(b.Len())
	for i := range int(count) {
		d := dir[i*descriptorSize:]
		off, n := getUint64(d), getUint64(d[8:])
		switch {
		case off < end:
			return nil, corruptf(dir, "descriptor %d at offset %d overlaps the previous region ending at %d", i, off, end)
		case off > end:
			return nil, corruptf(dir, "descriptor %d at offset %d leaves a gap after %d", i, off, end)
		case n > limit-off:
			return nil, corruptf(dir, "descriptor %d [%d, +%d) extends past the region end %d", i, off, n, limit)
		}
		r.parts = append(r.parts, Region{int(off), int(n)})
		end = off + n
	}
	if end != limit {
		return nil, corruptf(hdr, "data area ends at %d but the region is %d bytes", end, limit)
	}
	return r, nil
}

func (r *MultiRegion) dataStart() int {
	return multiHeaderSize + r.reserved*descriptorSize
}

func (r *MultiRegion) dataEnd() int {
	if n := len(r.parts); n > 0 {
		return r.parts[n-1].End()
	}
	return r.dataStart()
}

// Count returns the number of parts.
func (r *MultiRegion) Count() int { return len(r.parts) }

// Reserved returns the number of descriptor slots.
func (r *MultiRegion) Reserved() int { return r.reserved }

// Regions returns the current placement of every part within the parent.
func (r *MultiRegion) Regions() []Region {
	return append([]Region(nil), r.parts...)
}

func (r *MultiRegion) Flush() error { return r.b.Flush() }

// Insert appends a new empty part at the end of the data area.
func (r *MultiRegion) Insert() (*MultiPart, error) {
	id := len(r.parts)
	if id >= r.reserved {
		return nil, fmt.Errorf("%w: all %d descriptors in use", ErrDirectoryFull, r.reserved)
	}
	r.parts = append(r.parts, Region{Offset: r.dataEnd(), Length: 0})
	if err := r.writeDescriptor(id); err != nil {
		r.parts = r.parts[:id]
		return nil, err
	}
	if err := r.writeCount(); err != nil {
		r.parts = r.parts[:id]
		return nil, err
	}
	return &MultiPart{r: r, id: id}, nil
}

// InsertNew inserts a new part and opens a structure over it, for example:
//
//	store, err := bytestore.InsertNew(mr, bytestore.NewIndexedStore)
//
// If open fails, the part is removed again.
func InsertNew[C any](r *MultiRegion, open func(Backend) (C, error)) (C, error) {
	p, err := r.Insert()
	if err != nil {
		var zero C
		return zero, err
	}
	c, err := open(p)
	if err != nil {
		if rerr := r.removeLast(); rerr != nil {
			err = fmt.Errorf("%w (and removing the part failed: %v)", err, rerr)
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func (r *MultiRegion) removeLast() error {
	id := len(r.parts) - 1
	if err := r.resizePart(id, 0); err != nil {
		return err
	}
	r.parts = r.parts[:id]
	return r.writeCount()
}

// Part returns a handle to an existing part.
func (r *MultiRegion) Part(id int) (*MultiPart, error) {
	if id < 0 || id >= len(r.parts) {
		return nil, indexErr(id, len(r.parts))
	}
	return &MultiPart{r: r, id: id}, nil
}

// Open opens a structure over an existing part.
func Open[C any](r *MultiRegion, id int, open func(Backend) (C, error)) (C, error) {
	p, err := r.Part(id)
	if err != nil {
		var zero C
		return zero, err
	}
	return open(p)
}

func (r *MultiRegion) writeCount() error {
	return writeUint64(r.b, 0, uint64(len(r.parts)))
}

func (r *MultiRegion) writeDescriptor(id int) error {
	var d [descriptorSize]byte
	putUint64(d[:], uint64(r.parts[id].Offset))
	putUint64(d[8:], uint64(r.parts[id].Length))
	return r.b.Write(multiHeaderSize+id*descriptorSize, d[:])
}

// resizePart changes the length of part id, shifting every later part.
func (r *MultiRegion) resizePart(id, n int) error {
	p := r.parts[id]
	delta := n - p.Length
	if delta == 0 {
		return nil
	}
	end := p.End()
	total := r.b.Len()
	tail := total - end
	if delta > 0 {
		if err := r.b.Resize(total + delta); err != nil {
			return err
		}
		if err := moveBytes(r.b, end, end+delta, tail); err != nil {
			return err
		}
		if err := fillZero(r.b, end, delta); err != nil {
			return err
		}
	} else {
		if err := moveBytes(r.b, end, end+delta, tail); err != nil {
			return err
		}
		if err := r.b.Resize(total + delta); err != nil {
			return err
		}
	}

	r.parts[id].Length = n
	for k := id + 1; k < len(r.parts); k++ {
		r.parts[k].Offset += delta
	}
	for k := id; k < len(r.parts); k++ {
		if err := r.writeDescriptor(k); err != nil {
			return err
		}
	}
	return nil
}

func (p *MultiPart) ID() int { return p.id }

// Start returns the offset of the part within the parent backend.
func (p *MultiPart) Start() int { return p.r.parts[p.id].Offset }

func (p *MultiPart) Len() int { return p.r.parts[p.id].Length }

// Cap of the last part includes the parent's spare capacity; other parts
// are followed immediately by their successor.
func (p *MultiPart) Cap() int {
	if p.id == len(p.r.parts)-1 {
		return p.r.b.Cap() - p.Start()
	}
	return p.Len()
}

func (p *MultiPart) Read(off, n int) ([]byte, error) {
	if err := checkRange(off, n, p.Len()); err != nil {
		return nil, err
	}
	return p.r.b.Read(p.Start()+off, n)
}

func (p *MultiPart) Write(off int, data []byte) error {
	if err := checkRange(off, len(data), p.Len()); err != nil {
		return err
	}
	return p.r.b.Write(p.Start()+off, data)
}

func (p *MultiPart) Resize(n int) error {
	if err := checkResize(n); err != nil {
		return err
	}
	return p.r.resizePart(p.id, n)
}

func (p *MultiPart) Flush() error { return p.r.b.Flush() }
