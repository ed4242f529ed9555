package bytestore

import "sync"

// slotBytesPool holds scratch buffers for copying hash table slots during
// a rehash.
var slotBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 65536)
	},
}

func acquireSlotBytes(n int) []byte {
	buf := slotBytesPool.Get().([]byte)
	return ensureCapacity(buf[:0], n)[:n]
}

func releaseSlotBytes(b []byte) {
	slotBytesPool.Put(b[:0])
}
