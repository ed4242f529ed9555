package bytestore

// SplitHeaderSize is the size of the (len_a, len_b) header of a SplitRegion.
const SplitHeaderSize = 16

// SplitRegion divides a backend into two independently growable parts:
//
//	[0, 8)   len_a, little-endian
//	[8, 16)  len_b, little-endian
//	[16, 16+len_a)              part A
//	[16+len_a, 16+len_a+len_b)  part B
//
// Part B always starts right after A, so growing A moves all of B.
type SplitRegion struct {
	b    Backend
	lenA int
	lenB int
}

// SplitPart is one half of a SplitRegion. It implements Backend.
type SplitPart struct {
	r      *SplitRegion
	second bool
}

var _ Backend = (*SplitPart)(nil)

// OpenSplitRegion initializes an empty backend with a (0, 0) header or
// validates the header of an existing one.
func OpenSplitRegion(b Backend) (*SplitRegion, error) {
	r := &SplitRegion{b: b}
	if b.Len() == 0 {
		if err := b.Resize(SplitHeaderSize); err != nil {
			return nil, err
		}
		return r, nil
	}
	if b.Len() < SplitHeaderSize {
		return nil, corruptf(nil, "split region of %d bytes is shorter than its header", b.Len())
	}
	hdr, err := b.Read(0, SplitHeaderSize)
	if err != nil {
		return nil, err
	}
	a, bl := getUint64(hdr), getUint64(hdr[8:])
	avail := uint64(b.Len() - SplitHeaderSize)
	if a > avail || bl > avail || a+bl != avail {
		return nil, corruptf(hdr, "split lengths %d+%d do not cover %d bytes", a, bl, avail)
	}
	r.lenA, r.lenB = int(a), int(bl)
	return r, nil
}

// First returns part A.
func (r *SplitRegion) First() *SplitPart { return &SplitPart{r: r} }

// Second returns part B.
func (r *SplitRegion) Second() *SplitPart { return &SplitPart{r: r, second: true} }

// Split returns both parts.
func (r *SplitRegion) Split() (a, b *SplitPart) { return r.First(), r.Second() }

func (r *SplitRegion) Flush() error { return r.b.Flush() }

func (r *SplitRegion) writeHeader() error {
	var hdr [SplitHeaderSize]byte
	putUint64(hdr[:], uint64(r.lenA))
	putUint64(hdr[8:], uint64(r.lenB))
	return r.b.Write(0, hdr[:])
}

func (r *SplitRegion) resizeFirst(n int) error {
	delta := n - r.lenA
	if delta == 0 {
		return nil
	}
	oldEnd := SplitHeaderSize + r.lenA
	total := r.b.Len()
	if delta > 0 {
		if err := r.b.Resize(total + delta); err != nil {
			return err
		}
		if err := moveBytes(r.b, oldEnd, oldEnd+delta, r.lenB); err != nil {
			return err
		}
		if err := fillZero(r.b, oldEnd, delta); err != nil {
			return err
		}
	} else {
		if err := moveBytes(r.b, oldEnd, oldEnd+delta, r.lenB); err != nil {
			return err
		}
		if err := r.b.Resize(total + delta); err != nil {
			return err
		}
	}
	r.lenA = n
	return r.writeHeader()
}

func (r *SplitRegion) resizeSecond(n int) error {
	if n == r.lenB {
		return nil
	}
	if err := r.b.Resize(SplitHeaderSize + r.lenA + n); err != nil {
		return err
	}
	r.lenB = n
	return r.writeHeader()
}

// Start returns the offset of the part within the parent backend.
func (p *SplitPart) Start() int {
	if p.second {
		return SplitHeaderSize + p.r.lenA
	}
	return SplitHeaderSize
}

func (p *SplitPart) Len() int {
	if p.second {
		return p.r.lenB
	}
	return p.r.lenA
}

// Cap of part A equals its length since B follows it immediately; part B
// can use the parent's spare capacity.
func (p *SplitPart) Cap() int {
	if p.second {
		return p.r.b.Cap() - SplitHeaderSize - p.r.lenA
	}
	return p.r.lenA
}

func (p *SplitPart) Read(off, n int) ([]byte, error) {
	if err := checkRange(off, n, p.Len()); err != nil {
		return nil, err
	}
	return p.r.b.Read(p.Start()+off, n)
}

func (p *SplitPart) Write(off int, data []byte) error {
	if err := checkRange(off, len(data), p.Len()); err != nil {
		return err
	}
	return p.r.b.Write(p.Start()+off, data)
}

func (p *SplitPart) Resize(n int) error {
	if err := checkResize(n); err != nil {
		return err
	}
	if p.second {
		return p.r.resizeSecond(n)
	}
	return p.r.resizeFirst(n)
}

func (p *SplitPart) Flush() error { return p.r.b.Flush() }
