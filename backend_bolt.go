package bytestore

import (
	"fmt"
	"unsafe"

	"go.etcd.io/bbolt"
)

// BoltBackend is an in-memory region persisted as a single value of a bbolt
// bucket. Reads and writes work on the buffer; Flush stores it in one
// write transaction, so a flushed region is never observed half-written.
type BoltBackend struct {
	*MemoryBackend
	bdb    *bbolt.DB
	bucket string
	key    string
}

var _ Backend = (*BoltBackend)(nil)

// OpenBolt loads the region stored under bucket/key, or starts an empty one
// if there is none.
func OpenBolt(bdb *bbolt.DB, bucket, key string) (*BoltBackend, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("bytestore: bolt bucket and key must be non-empty")
	}
	var data []byte
	err := bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(unsafeBytesFromString(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get(unsafeBytesFromString(key)); v != nil {
			// Bolt values are only valid inside the transaction.
			data = append(make([]byte, 0, len(v)), v...)
		}
		return nil
	})
	if err != nil {
		return nil, ioErr("bolt load", bdb.Path(), err)
	}
	return &BoltBackend{
		MemoryBackend: LoadMemoryBackend(data),
		bdb:           bdb,
		bucket:        bucket,
		key:           key,
	}, nil
}

func (b *BoltBackend) Flush() error {
	err := b.bdb.Update(func(tx *bbolt.Tx) error {
		buck, err := tx.CreateBucketIfNotExists(unsafeBytesFromString(b.bucket))
		if err != nil {
			return err
		}
		return buck.Put([]byte(b.key), b.Bytes())
	})
	if err != nil {
		return ioErr("bolt flush", b.bdb.Path(), err)
	}
	return nil
}

// Delete removes the persisted value; the in-memory region is kept.
func (b *BoltBackend) Delete() error {
	err := b.bdb.Update(func(tx *bbolt.Tx) error {
		buck := tx.Bucket(unsafeBytesFromString(b.bucket))
		if buck == nil {
			return nil
		}
		return buck.Delete([]byte(b.key))
	})
	if err != nil {
		return ioErr("bolt delete", b.bdb.Path(), err)
	}
	return nil
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
