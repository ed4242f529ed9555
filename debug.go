package bytestore

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpLayout = DumpFlags(1 << iota)
	DumpStats
	DumpData

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	// dumpDataLimit caps the number of bytes printed per part by DumpData.
	dumpDataLimit = 64
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump describes the directory and, depending on f, the parts of r.
func (r *MultiRegion) Dump(f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpLayout) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "multi (%d/%d parts, data at %d)\n", len(r.parts), r.reserved, r.dataStart())
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(&buf, "multi.stats: len = %d, cap = %d, data_size = %d\n", r.b.Len(), r.b.Cap(), r.dataEnd()-r.dataStart())
	}
	for id := range r.parts {
		dumpPart(&buf, fmt.Sprintf("multi.%d", id), f, &MultiPart{r, id})
	}
	return buf.String()
}

// Dump describes the header and, depending on f, both parts of r.
func (r *SplitRegion) Dump(f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpLayout) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "split (a = %d, b = %d)\n", r.lenA, r.lenB)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(&buf, "split.stats: len = %d, cap = %d\n", r.b.Len(), r.b.Cap())
	}
	dumpPart(&buf, "split.a", f, r.First())
	dumpPart(&buf, "split.b", f, r.Second())
	return buf.String()
}

// Dump describes the header bytes and the payload size of r.
func (r *HeaderRegion) Dump(f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpLayout) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "header (%d bytes)\n", r.size)
	}
	if f.Contains(DumpData) {
		hdr, err := r.Header()
		if err != nil {
			fmt.Fprintf(&buf, "header = ** ERROR: %v\n", err)
		} else {
			fmt.Fprintf(&buf, "header = %s\n", hexstr(hdr))
		}
	}
	dumpPart(&buf, "body", f, r)
	return buf.String()
}

type startBackend interface {
	Backend
	Start() int
}

func dumpPart(w *strings.Builder, prefix string, f DumpFlags, b Backend) {
	if f.Contains(DumpLayout) {
		fmt.Fprintln(w, dumpSep2)
		if sb, ok := b.(startBackend); ok {
			fmt.Fprintf(w, "%s @%d (%d bytes)\n", prefix, sb.Start(), b.Len())
		} else {
			fmt.Fprintf(w, "%s (%d bytes)\n", prefix, b.Len())
		}
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: len = %d, cap = %d\n", prefix, b.Len(), b.Cap())
	}
	if f.Contains(DumpData) {
		n := min(b.Len(), dumpDataLimit)
		data, err := b.Read(0, n)
		if err != nil {
			fmt.Fprintf(w, "%s.data = ** ERROR: %v\n", prefix, err)
			return
		}
		var more string
		if n < b.Len() {
			more = fmt.Sprintf("... (+%d bytes)", b.Len()-n)
		}
		fmt.Fprintf(w, "%s.data = %s%s\n", prefix, hexstr(data), more)
	}
}

// DumpBackend describes a plain backend the same way parts are described by
// the region Dump methods.
func DumpBackend(name string, b Backend, f DumpFlags) string {
	var buf strings.Builder
	dumpPart(&buf, name, f, b)
	return buf.String()
}
