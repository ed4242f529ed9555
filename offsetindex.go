package bytestore

import "bytes"

const (
	offsetIndexHeaderSize = 16
	minIndexCapacity      = 8
)

// offsetIndex is the layout shared by IndexedStore and CompressedIntList:
//
//	[0, 8)    count
//	[8, 16)   index capacity (slots)
//	capacity × u64 cumulative end offsets (index[i] = end of record i)
//	data area: concatenated records
//
// Record i spans [index[i-1] or 0, index[i]) of the data area. The index
// reserves slots geometrically so that appending rarely moves the data area.
type offsetIndex struct {
	b       Backend
	count   int
	icap    int
	dataLen int
}

func openOffsetIndex(b Backend) (offsetIndex, error) {
	x := offsetIndex{b: b}
	if b.Len() == 0 {
		if err := b.Resize(offsetIndexHeaderSize); err != nil {
			return x, err
		}
		return x, nil
	}
	if b.Len() < offsetIndexHeaderSize {
		return x, corruptf(nil, "indexed region of %d bytes is shorter than its header", b.Len())
	}
	hdr, err := b.Read(0, offsetIndexHeaderSize)
	if err != nil {
		return x, err
	}
	count, icap := getUint64(hdr), getUint64(hdr[8:])
	if icap > uint64((b.Len()-offsetIndexHeaderSize)/8) {
		return x, corruptf(hdr, "index of %d slots does not fit into %d bytes", icap, b.Len())
	}
	if count > icap {
		return x, corruptf(hdr, "index holds %d records but has %d slots", count, icap)
	}
	x.count, x.icap = int(count), int(icap)
	x.dataLen = b.Len() - x.dataStart()

	index, err := b.Read(offsetIndexHeaderSize, x.count*8)
	if err != nil {
		return x, err
	}
	var prev uint64
	for i := range x.count {
		end := getUint64(index[i*8:])
		if end < prev {
			return x, corruptf(index, "index entry %d (%d) is below the previous one (%d)", i, end, prev)
		}
		prev = end
	}
	if prev != uint64(x.dataLen) {
		return x, corruptf(hdr, "records end at %d but the data area is %d bytes", prev, x.dataLen)
	}
	return x, nil
}

func (x *offsetIndex) dataStart() int {
	return offsetIndexHeaderSize + x.icap*8
}

func (x *offsetIndex) end(i int) (int, error) {
	if i < 0 {
		return 0, nil
	}
	v, err := readUint64(x.b, offsetIndexHeaderSize+i*8)
	return int(v), err
}

// span returns the data-area range of record i.
func (x *offsetIndex) span(i int) (start, end int, err error) {
	if i < 0 || i >= x.count {
		return 0, 0, indexErr(i, x.count)
	}
	if start, err = x.end(i - 1); err != nil {
		return 0, 0, err
	}
	if end, err = x.end(i); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (x *offsetIndex) record(i int) ([]byte, error) {
	start, end, err := x.span(i)
	if err != nil {
		return nil, err
	}
	return x.b.Read(x.dataStart()+start, end-start)
}

// data returns a view of the whole data area.
func (x *offsetIndex) data() ([]byte, error) {
	return x.b.Read(x.dataStart(), x.dataLen)
}

// append adds rec as a new last record. rec may be a view of this same
// backend: it is copied first whenever the data area may move.
func (x *offsetIndex) append(rec []byte) (int, error) {
	if x.count == x.icap || x.b.Len()+len(rec) > x.b.Cap() {
		rec = bytes.Clone(rec)
	}
	if x.count == x.icap {
		if err := x.reserve(max(minIndexCapacity, x.icap*2)); err != nil {
			return 0, err
		}
	}
	off := x.b.Len()
	if err := x.b.Resize(off + len(rec)); err != nil {
		return 0, err
	}
	if err := x.b.Write(off, rec); err != nil {
		return 0, err
	}
	id := x.count
	if err := writeUint64(x.b, offsetIndexHeaderSize+id*8, uint64(x.dataLen+len(rec))); err != nil {
		return 0, err
	}
	if err := writeUint64(x.b, 0, uint64(id+1)); err != nil {
		return 0, err
	}
	x.dataLen += len(rec)
	x.count = id + 1
	return id, nil
}

// appendN adds recs as consecutive records with a single resize of the data
// area, and returns the index of the first one.
func (x *offsetIndex) appendN(recs [][]byte) (int, error) {
	first := x.count
	if len(recs) == 0 {
		return first, nil
	}
	var n int
	for _, r := range recs {
		n += len(r)
	}
	buf := make([]byte, 0, n)
	ends := make([]byte, len(recs)*8)
	for k, r := range recs {
		buf = append(buf, r...)
		putUint64(ends[k*8:], uint64(x.dataLen+len(buf)))
	}

	if need := x.count + len(recs); need > x.icap {
		if err := x.reserve(max(minIndexCapacity, x.icap*2, need)); err != nil {
			return 0, err
		}
	}
	if _, err := appendBytes(x.b, buf); err != nil {
		return 0, err
	}
	if err := x.b.Write(offsetIndexHeaderSize+first*8, ends); err != nil {
		return 0, err
	}
	if err := writeUint64(x.b, 0, uint64(first+len(recs))); err != nil {
		return 0, err
	}
	x.dataLen += n
	x.count += len(recs)
	return first, nil
}

// insertAt places rec at position i, shifting records i and later up by one.
func (x *offsetIndex) insertAt(i int, rec []byte) error {
	if i < 0 || i > x.count {
		return indexErr(i, x.count+1)
	}
	rec = bytes.Clone(rec)
	if x.count == x.icap {
		if err := x.reserve(max(minIndexCapacity, x.icap*2)); err != nil {
			return err
		}
	}
	start, err := x.end(i - 1)
	if err != nil {
		return err
	}
	ds := x.dataStart()
	if err := x.b.Resize(x.b.Len() + len(rec)); err != nil {
		return err
	}
	if err := moveBytes(x.b, ds+start, ds+start+len(rec), x.dataLen-start); err != nil {
		return err
	}
	if err := x.b.Write(ds+start, rec); err != nil {
		return err
	}

	ends, err := x.ends(i, x.count, len(rec))
	if err != nil {
		return err
	}
	slot := make([]byte, 8, 8+len(ends))
	putUint64(slot, uint64(start+len(rec)))
	if err := x.b.Write(offsetIndexHeaderSize+i*8, append(slot, ends...)); err != nil {
		return err
	}
	if err := writeUint64(x.b, 0, uint64(x.count+1)); err != nil {
		return err
	}
	x.count++
	x.dataLen += len(rec)
	return nil
}

// ends returns a copy of index entries [from, to), each shifted by delta.
func (x *offsetIndex) ends(from, to, delta int) ([]byte, error) {
	if from >= to {
		return nil, nil
	}
	view, err := x.b.Read(offsetIndexHeaderSize+from*8, (to-from)*8)
	if err != nil {
		return nil, err
	}
	buf := bytes.Clone(view)
	for k := 0; k < len(buf); k += 8 {
		putUint64(buf[k:], uint64(int(getUint64(buf[k:]))+delta))
	}
	return buf, nil
}

// resizeRecord sets the length of record i to n, keeping its first
// min(old, n) bytes. Growth is zero-filled and moves every later record.
func (x *offsetIndex) resizeRecord(i, n int) (start int, err error) {
	start, end, err := x.span(i)
	if err != nil {
		return 0, err
	}
	delta := n - (end - start)
	if delta == 0 {
		return start, nil
	}
	ds := x.dataStart()
	tail := x.dataLen - end
	if delta > 0 {
		if err := x.b.Resize(x.b.Len() + delta); err != nil {
			return 0, err
		}
		if err := moveBytes(x.b, ds+end, ds+end+delta, tail); err != nil {
			return 0, err
		}
		if err := fillZero(x.b, ds+end, delta); err != nil {
			return 0, err
		}
	} else {
		if err := moveBytes(x.b, ds+end, ds+end+delta, tail); err != nil {
			return 0, err
		}
		if err := x.b.Resize(x.b.Len() + delta); err != nil {
			return 0, err
		}
	}
	ends, err := x.ends(i, x.count, delta)
	if err != nil {
		return 0, err
	}
	if err := x.b.Write(offsetIndexHeaderSize+i*8, ends); err != nil {
		return 0, err
	}
	x.dataLen += delta
	return start, nil
}

// set replaces the content of record i with rec.
func (x *offsetIndex) set(i int, rec []byte) error {
	rec = bytes.Clone(rec)
	start, err := x.resizeRecord(i, len(rec))
	if err != nil {
		return err
	}
	return x.b.Write(x.dataStart()+start, rec)
}

// extend appends data to the end of record i.
func (x *offsetIndex) extend(i int, data []byte) error {
	start, end, err := x.span(i)
	if err != nil {
		return err
	}
	data = bytes.Clone(data)
	if _, err := x.resizeRecord(i, end-start+len(data)); err != nil {
		return err
	}
	return x.b.Write(x.dataStart()+end, data)
}

// reserve grows the index to at least icap slots, moving the data area.
func (x *offsetIndex) reserve(icap int) error {
	if icap <= x.icap {
		return nil
	}
	delta := (icap - x.icap) * 8
	start := x.dataStart()
	if err := x.b.Resize(x.b.Len() + delta); err != nil {
		return err
	}
	if err := moveBytes(x.b, start, start+delta, x.dataLen); err != nil {
		return err
	}
	if err := fillZero(x.b, start, delta); err != nil {
		return err
	}
	if err := writeUint64(x.b, 8, uint64(icap)); err != nil {
		return err
	}
	x.icap = icap
	return nil
}

// shrinkToFit drops unused index slots, moving the data area down.
func (x *offsetIndex) shrinkToFit() error {
	if x.icap == x.count {
		return nil
	}
	delta := (x.icap - x.count) * 8
	start := x.dataStart()
	if err := moveBytes(x.b, start, start-delta, x.dataLen); err != nil {
		return err
	}
	if err := writeUint64(x.b, 8, uint64(x.count)); err != nil {
		return err
	}
	x.icap = x.count
	return x.b.Resize(x.b.Len() - delta)
}

// clear drops every record but keeps the index slots.
func (x *offsetIndex) clear() error {
	if err := writeUint64(x.b, 0, 0); err != nil {
		return err
	}
	x.count, x.dataLen = 0, 0
	return x.b.Resize(x.dataStart())
}
