package bytestore

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// HashKind selects the function used to hash encoded keys. It is persisted
// in the table header, so a table always reopens with the hash it was built
// with.
type HashKind uint8

const (
	HashFNV1a HashKind = iota
	HashXXH64
)

func (k HashKind) String() string {
	switch k {
	case HashFNV1a:
		return "fnv1a"
	case HashXXH64:
		return "xxh64"
	default:
		return fmt.Sprintf("HashKind(%d)", uint8(k))
	}
}

func (k HashKind) fn() func([]byte) uint64 {
	switch k {
	case HashFNV1a:
		return fnv1a
	case HashXXH64:
		return xxhash.Sum64
	default:
		return nil
	}
}

const (
	fnvOffsetBasis = 0xcbf29ce484222325
	fnvPrime       = 0x100000001b3
)

func fnv1a(data []byte) uint64 {
	h := uint64(fnvOffsetBasis)
	for _, c := range data {
		h ^= uint64(c)
		h *= fnvPrime
	}
	return h
}

const (
	hashHeaderSize = 32

	slotEmpty     = 0
	slotOccupied  = 1
	slotTombstone = 2

	slotHashOff   = 1
	slotKeyLenOff = 9
	slotKeyOff    = 11

	DefaultHashCapacity  = 16
	DefaultHashFieldSize = 32

	maxLoadFactor = 0.7
)

type HashTableOptions struct {
	// KeySize and ValueSize are the maximum encoded sizes stored in a slot.
	// They default to the codec width for fixed codecs and to
	// DefaultHashFieldSize otherwise. Ignored when opening an existing table
	// unless they disagree with the stored sizes.
	KeySize   int
	ValueSize int

	// InitialCapacity is rounded up to a power of two. Defaults to
	// DefaultHashCapacity.
	InitialCapacity int

	Hash   HashKind
	Logger *slog.Logger
}

// HashTable is an open-addressing hash map with linear probing. Each slot is
//
//	state u8, stored hash u64, key_len u16, key [KeySize], value_len u16, value [ValueSize]
//
// after a 32-byte header (capacity, occupied, tombstones, key size, value
// size, hash kind). Keys are compared by their encoded bytes.
//
// The table doubles when occupied plus tombstone slots would exceed 70% of
// capacity. Removal leaves a tombstone that is only reclaimed by a resize or
// Compact.
type HashTable[K, V any] struct {
	b      Backend
	kc     Codec[K]
	vc     Codec[V]
	hash   func([]byte) uint64
	kind   HashKind
	logger *slog.Logger

	cap        int
	occupied   int
	tombstones int
	keySize    int
	valueSize  int
	slotSize   int

	kbuf []byte
	vbuf []byte
	sbuf []byte

	err error
}

func fieldSize[T any](c Codec[T], size int) int {
	if size > 0 {
		return size
	}
	if fc, ok := c.(FixedCodec[T]); ok {
		return fc.Width()
	}
	return DefaultHashFieldSize
}

// NewHashTable initializes a table on an empty backend or validates and
// attaches to an existing one.
func NewHashTable[K, V any](b Backend, kc Codec[K], vc Codec[V], o HashTableOptions) (*HashTable[K, V], error) {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	h := &HashTable[K, V]{
		b:      b,
		kc:     kc,
		vc:     vc,
		logger: o.Logger,
	}
	if b.Len() == 0 {
		err := h.init(o)
		if err != nil {
			return nil, err
		}
	} else {
		err := h.load(o)
		if err != nil {
			return nil, err
		}
	}
	h.hash = h.kind.fn()
	h.slotSize = slotKeyOff + h.keySize + 2 + h.valueSize
	return h, nil
}

func (h *HashTable[K, V]) init(o HashTableOptions) error {
	h.keySize = fieldSize(h.kc, o.KeySize)
	h.valueSize = fieldSize(h.vc, o.ValueSize)
	if h.keySize > math.MaxUint16 || h.valueSize > math.MaxUint16 {
		return fmt.Errorf("%w: slot fields of %d and %d bytes do not fit into u16", ErrEncodingWidthMismatch, h.keySize, h.valueSize)
	}
	if o.Hash.fn() == nil {
		return fmt.Errorf("bytestore: unknown hash kind %v", o.Hash)
	}
	h.kind = o.Hash
	h.cap = nextPowerOfTwo(max(o.InitialCapacity, 0))
	if o.InitialCapacity == 0 {
		h.cap = DefaultHashCapacity
	}
	slotSize := slotKeyOff + h.keySize + 2 + h.valueSize
	if err := h.b.Resize(hashHeaderSize + h.cap*slotSize); err != nil {
		return err
	}
	return h.writeHeader()
}

func (h *HashTable[K, V]) load(o HashTableOptions) error {
	hdr, err := h.b.Read(0, min(hashHeaderSize, h.b.Len()))
	if err != nil {
		return err
	}
	if len(hdr) < hashHeaderSize {
		return corruptf(hdr, "hash table of %d bytes is shorter than its header", len(hdr))
	}
	capacity, occupied, tombstones := getUint64(hdr), getUint64(hdr[8:]), getUint64(hdr[16:])
	h.keySize = int(hdr[24]) | int(hdr[25])<<8
	h.valueSize = int(hdr[26]) | int(hdr[27])<<8
	h.kind = HashKind(hdr[28])

	if h.kind.fn() == nil {
		return corruptf(hdr, "unknown hash kind %d", hdr[28])
	}
	if capacity > math.MaxInt32 || !isPowerOfTwo(int(capacity)) {
		return corruptf(hdr, "capacity %d is not a power of two", capacity)
	}
	if occupied+tombstones > capacity {
		return corruptf(hdr, "%d occupied and %d tombstone slots exceed capacity %d", occupied, tombstones, capacity)
	}
	slotSize := slotKeyOff + h.keySize + 2 + h.valueSize
	if want := hashHeaderSize + int(capacity)*slotSize; h.b.Len() != want {
		return corruptf(hdr, "hash table is %d bytes, wanted %d for %d slots", h.b.Len(), want, capacity)
	}
	if o.KeySize != 0 && o.KeySize != h.keySize {
		return widthErr("key size", o.KeySize, h.keySize)
	}
	if o.ValueSize != 0 && o.ValueSize != h.valueSize {
		return widthErr("value size", o.ValueSize, h.valueSize)
	}
	h.cap, h.occupied, h.tombstones = int(capacity), int(occupied), int(tombstones)
	return nil
}

func (h *HashTable[K, V]) writeHeader() error {
	var hdr [hashHeaderSize]byte
	putUint64(hdr[0:], uint64(h.cap))
	putUint64(hdr[8:], uint64(h.occupied))
	putUint64(hdr[16:], uint64(h.tombstones))
	hdr[24], hdr[25] = byte(h.keySize), byte(h.keySize>>8)
	hdr[26], hdr[27] = byte(h.valueSize), byte(h.valueSize>>8)
	hdr[28] = byte(h.kind)
	return h.b.Write(0, hdr[:])
}

// Len returns the number of keys.
func (h *HashTable[K, V]) Len() int { return h.occupied }

func (h *HashTable[K, V]) Capacity() int { return h.cap }

func (h *HashTable[K, V]) Tombstones() int { return h.tombstones }

func (h *HashTable[K, V]) HashKind() HashKind { return h.kind }

// LoadFactor returns the fraction of slots that are not empty, counting
// tombstones.
func (h *HashTable[K, V]) LoadFactor() float64 {
	return float64(h.occupied+h.tombstones) / float64(h.cap)
}

func (h *HashTable[K, V]) slotOff(i int) int {
	return hashHeaderSize + i*h.slotSize
}

func (h *HashTable[K, V]) encodeKey(k K) ([]byte, error) {
	key, err := h.kc.Encode(h.kbuf[:0], k)
	if err != nil {
		return nil, err
	}
	h.kbuf = key
	return key, nil
}

// probe walks the probe sequence for key. It returns the slot holding key,
// or, when key is absent, the slot an insert should claim: the first
// tombstone seen or the empty slot that ends the sequence. free is -1 if the
// whole table was traversed without finding a usable slot.
func (h *HashTable[K, V]) probe(hash uint64, key []byte) (found, free int, err error) {
	mask := h.cap - 1
	home := int(hash & uint64(mask))
	free = -1
	for i := range h.cap {
		idx := (home + i) & mask
		slot, err := h.b.Read(h.slotOff(idx), slotKeyOff+h.keySize)
		if err != nil {
			return -1, -1, err
		}
		switch slot[0] {
		case slotEmpty:
			if free < 0 {
				free = idx
			}
			return -1, free, nil
		case slotTombstone:
			if free < 0 {
				free = idx
			}
		case slotOccupied:
			if getUint64(slot[slotHashOff:]) != hash {
				continue
			}
			n := int(slot[slotKeyLenOff]) | int(slot[slotKeyLenOff+1])<<8
			if n == len(key) && bytes.Equal(slot[slotKeyOff:slotKeyOff+n], key) {
				return idx, free, nil
			}
		default:
			return -1, -1, corruptf(slot[:1], "slot %d has invalid state %d", idx, slot[0])
		}
	}
	return -1, free, nil
}

// Insert adds or replaces the value stored under k.
func (h *HashTable[K, V]) Insert(k K, v V) error {
	key, err := h.encodeKey(k)
	if err != nil {
		return err
	}
	if len(key) > h.keySize {
		return widthErr("key", len(key), h.keySize)
	}
	val, err := h.vc.Encode(h.vbuf[:0], v)
	if err != nil {
		return err
	}
	h.vbuf = val
	if len(val) > h.valueSize {
		return widthErr("value", len(val), h.valueSize)
	}

	if float64(h.occupied+h.tombstones+1) > maxLoadFactor*float64(h.cap) {
		if err := h.resize(h.cap * 2); err != nil {
			return err
		}
	}

	hash := h.hash(key)
	for {
		found, free, err := h.probe(hash, key)
		if err != nil {
			return err
		}
		if found >= 0 {
			return h.writeSlot(found, hash, key, val)
		}
		if free < 0 {
			if err := h.resize(h.cap * 2); err != nil {
				return err
			}
			continue
		}
		wasTombstone, err := h.slotState(free)
		if err != nil {
			return err
		}
		if err := h.writeSlot(free, hash, key, val); err != nil {
			return err
		}
		if wasTombstone == slotTombstone {
			h.tombstones--
		}
		h.occupied++
		return h.writeHeader()
	}
}

func (h *HashTable[K, V]) slotState(i int) (byte, error) {
	b, err := h.b.Read(h.slotOff(i), 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (h *HashTable[K, V]) writeSlot(i int, hash uint64, key, val []byte) error {
	h.sbuf = ensureCapacity(h.sbuf[:0], h.slotSize)[:h.slotSize]
	s := h.sbuf
	clear(s)
	s[0] = slotOccupied
	putUint64(s[slotHashOff:], hash)
	s[slotKeyLenOff], s[slotKeyLenOff+1] = byte(len(key)), byte(len(key)>>8)
	copy(s[slotKeyOff:], key)
	vl := slotKeyOff + h.keySize
	s[vl], s[vl+1] = byte(len(val)), byte(len(val)>>8)
	copy(s[vl+2:], val)
	return h.b.Write(h.slotOff(i), s)
}

func (h *HashTable[K, V]) lookup(k K) (int, error) {
	key, err := h.encodeKey(k)
	if err != nil {
		return -1, err
	}
	if len(key) > h.keySize {
		return -1, nil
	}
	found, _, err := h.probe(h.hash(key), key)
	return found, err
}

func (h *HashTable[K, V]) decodeValue(i int) (V, error) {
	vl := slotKeyOff + h.keySize
	slot, err := h.b.Read(h.slotOff(i), h.slotSize)
	if err != nil {
		var zero V
		return zero, err
	}
	n := int(slot[vl]) | int(slot[vl+1])<<8
	if n > h.valueSize {
		var zero V
		return zero, corruptf(slot, "slot %d stores a %d-byte value in a %d-byte field", i, n, h.valueSize)
	}
	return h.vc.Decode(slot[vl+2 : vl+2+n])
}

func (h *HashTable[K, V]) decodeKey(i int) (K, error) {
	slot, err := h.b.Read(h.slotOff(i), slotKeyOff+h.keySize)
	if err != nil {
		var zero K
		return zero, err
	}
	n := int(slot[slotKeyLenOff]) | int(slot[slotKeyLenOff+1])<<8
	if n > h.keySize {
		var zero K
		return zero, corruptf(slot, "slot %d stores a %d-byte key in a %d-byte field", i, n, h.keySize)
	}
	return h.kc.Decode(slot[slotKeyOff : slotKeyOff+n])
}

// Get returns the value stored under k. A key that is too long to ever be
// stored is reported as missing.
func (h *HashTable[K, V]) Get(k K) (V, bool, error) {
	var zero V
	i, err := h.lookup(k)
	if err != nil || i < 0 {
		return zero, false, err
	}
	v, err := h.decodeValue(i)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (h *HashTable[K, V]) Contains(k K) (bool, error) {
	i, err := h.lookup(k)
	return i >= 0, err
}

// Remove deletes k, leaving a tombstone in its slot.
func (h *HashTable[K, V]) Remove(k K) (bool, error) {
	i, err := h.lookup(k)
	if err != nil || i < 0 {
		return false, err
	}
	if err := h.b.Write(h.slotOff(i), []byte{slotTombstone}); err != nil {
		return false, err
	}
	h.occupied--
	h.tombstones++
	return true, h.writeHeader()
}

// Clear removes every key without shrinking the table.
func (h *HashTable[K, V]) Clear() error {
	if err := fillZero(h.b, hashHeaderSize, h.cap*h.slotSize); err != nil {
		return err
	}
	h.occupied, h.tombstones = 0, 0
	return h.writeHeader()
}

// Reserve grows the table so that it can hold n entries in total without
// another resize. It never shrinks the table.
func (h *HashTable[K, V]) Reserve(n int) error {
	if n < 0 || n > math.MaxInt/4 {
		return fmt.Errorf("%w: cannot reserve %d entries", ErrCapacityExceeded, n)
	}
	want := nextPowerOfTwo(int(math.Ceil(float64(n) / maxLoadFactor)))
	if want <= h.cap {
		return nil
	}
	return h.resize(want)
}

// Compact rehashes the table at its current capacity, dropping tombstones.
func (h *HashTable[K, V]) Compact() error {
	if h.tombstones == 0 {
		return nil
	}
	return h.resize(h.cap)
}

// resize rebuilds the table with newCap slots, reinserting occupied slots by
// their stored hash. On failure the table is left as it was.
func (h *HashTable[K, V]) resize(newCap int) error {
	start := time.Now()
	if newCap > (math.MaxInt-hashHeaderSize)/h.slotSize {
		return fmt.Errorf("%w: hash table of %d slots", ErrCapacityExceeded, newCap)
	}
	oldCap, area := h.cap, h.cap*h.slotSize
	old := acquireSlotBytes(area)
	defer releaseSlotBytes(old)
	src, err := h.b.Read(hashHeaderSize, area)
	if err != nil {
		return err
	}
	copy(old, src)

	if err := h.b.Resize(hashHeaderSize + newCap*h.slotSize); err != nil {
		return fmt.Errorf("%w: growing hash table to %d slots: %w", ErrCapacityExceeded, newCap, err)
	}
	if err := fillZero(h.b, hashHeaderSize, newCap*h.slotSize); err != nil {
		return err
	}

	mask := newCap - 1
	var occupied int
	for i := range oldCap {
		slot := old[i*h.slotSize : (i+1)*h.slotSize]
		if slot[0] != slotOccupied {
			continue
		}
		idx := int(getUint64(slot[slotHashOff:]) & uint64(mask))
		for {
			state, err := h.slotState(idx)
			if err != nil {
				return err
			}
			if state == slotEmpty {
				break
			}
			idx = (idx + 1) & mask
		}
		if err := h.b.Write(hashHeaderSize+idx*h.slotSize, slot); err != nil {
			return err
		}
		occupied++
	}

	dropped := h.tombstones
	h.cap, h.occupied, h.tombstones = newCap, occupied, 0
	if err := h.writeHeader(); err != nil {
		return err
	}
	h.logger.LogAttrs(context.Background(), slog.LevelDebug, "bytestore: hash table resized",
		slog.Int("old_cap", oldCap),
		slog.Int("new_cap", newCap),
		slog.Int("occupied", occupied),
		slog.Int("tombstones_dropped", dropped),
		slog.Duration("dur", time.Since(start)))
	return nil
}

// All iterates over the entries in slot order. The table must not be
// modified during iteration. An entry that fails to read or decode stops the
// iteration and is reported by Err.
func (h *HashTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		h.err = nil
		for i := range h.cap {
			state, err := h.slotState(i)
			if err != nil {
				h.err = err
				return
			}
			if state != slotOccupied {
				continue
			}
			k, err := h.decodeKey(i)
			if err != nil {
				h.err = err
				return
			}
			v, err := h.decodeValue(i)
			if err != nil {
				h.err = err
				return
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Err returns the error that stopped the last All iteration, if any.
func (h *HashTable[K, V]) Err() error { return h.err }

func (h *HashTable[K, V]) Flush() error { return h.b.Flush() }
