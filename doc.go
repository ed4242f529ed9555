/*
Package bytestore implements persistent data structures that live in flat,
resizable byte regions.

A Backend is a contiguous region of bytes that can grow and shrink. We
provide an in-memory backend, a memory-mapped file (MappedBackend) and a
value in a Bolt bucket (BoltBackend). Regions can be subdivided:

1. HeaderRegion reserves a fixed-size header for caller metadata.

2. SplitRegion divides a region into two growable parts.

3. MultiRegion divides a region into any number of growable parts, listed
in a directory at its start.

The parts are Backends too, so any structure can live in any part, and
regions nest. On top of that we implement BitVector, FixedList,
CompressedIntList, IndexedStore and HashTable.

# Technical Details

**Offsets, not pointers.**
Structures never hold slices into their backend between calls. Sub-backends
recompute their start offset from the parent on every call, so moving a part
(when a sibling before it grows) or remapping a file does not invalidate
anything but outstanding views returned by Read.

**Views.**
Read returns a slice aliasing the storage. It is valid until the next
mutation of the same physical allocation, which includes mutations through
sibling parts. Copy the bytes if you need them longer.

**Growth.**
Backends grow their capacity geometrically, so appending is amortized O(1).
Bytes added by Resize read as zero.

## Binary encoding

All integers are little-endian u64 unless noted.

**Mapped file**: logical length, then the region. The file is the capacity.

**SplitRegion**: len_a, len_b, then A, then B.

**MultiRegion**: count, reserved, then reserved × {offset, length}, then the
parts back to back.

**BitVector**: bit count, then the bits, LSB first.

**FixedList**: the elements; the count is the length divided by the width.

**IndexedStore** and **CompressedIntList**: count, index capacity, then the
cumulative end offset of each record, then the records. CompressedIntList
records are uvarints.

**HashTable**: see HashTable.

# Concurrency

Nothing here is safe for concurrent use. Flush is explicit; closing a mapped
backend does not flush it. Directory rewrites are not crash-safe.
*/
package bytestore
