package kvdoc

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

var boltDataBucket = []byte("kv")

// BoltStore keeps all keys in a single Bolt bucket. Key enumeration seeks to
// the literal prefix of the pattern and walks forward from there.
type BoltStore struct {
	bdb *bbolt.DB
}

type BoltOptions struct {
	// IsTesting trades durability for speed.
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration
}

var _ Store = (*BoltStore)(nil)

func OpenBoltStore(path string, opt BoltOptions) (*BoltStore, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("kvdoc: %w", err)
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(boltDataBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("kvdoc: %w", err)
	}
	return &BoltStore{bdb: bdb}, nil
}

func (s *BoltStore) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		if v := nonNil(btx.Bucket(boltDataBucket)).Get(unsafeBytesFromString(key)); v != nil {
			value = slices.Clone(v) // v is only valid inside the tx
			if value == nil {
				value = []byte{}
			}
		}
		return nil
	})
	return value, err
}

func (s *BoltStore) Set(ctx context.Context, key string, value []byte) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return nonNil(btx.Bucket(boltDataBucket)).Put([]byte(key), value)
	})
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return nonNil(btx.Bucket(boltDataBucket)).Delete(unsafeBytesFromString(key))
	})
}

func (s *BoltStore) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		found = nonNil(btx.Bucket(boltDataBucket)).Get(unsafeBytesFromString(key)) != nil
		return nil
	})
	return found, err
}

func (s *BoltStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	prefix := []byte(globPrefix(pattern))
	var keys []string
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		c := nonNil(btx.Bucket(boltDataBucket)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if key := string(k); matchGlob(pattern, key) {
				keys = append(keys, key)
			}
		}
		return nil
	})
	return keys, err
}

func (s *BoltStore) Close() error {
	return s.bdb.Close()
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
