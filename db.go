package kvdoc

import (
	"context"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
)

// DB maps records onto a Store. It holds no state of its own besides
// configuration and counters; all data lives in the store.
type DB struct {
	store            Store
	enc              Encoding
	logger           *zap.Logger
	verbose          bool
	schema           *Schema
	fetchConcurrency int

	ReadCount   atomic.Uint64
	WriteCount  atomic.Uint64
	DeleteCount atomic.Uint64
	ScanCount   atomic.Uint64
}

type Options struct {
	Encoding Encoding
	Logger   *zap.Logger

	// Verbose logs every store call at debug level.
	Verbose bool

	// Schema holds field rules for untyped documents. May be nil.
	Schema *Schema

	// FetchConcurrency bounds the number of parallel Gets issued by scans.
	// Values below 2 fetch sequentially.
	FetchConcurrency int
}

func Open(store Store, opt Options) *DB {
	if store == nil {
		panic("kvdoc: nil store")
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{
		store:            store,
		enc:              opt.Encoding,
		logger:           logger,
		verbose:          opt.Verbose,
		schema:           opt.Schema,
		fetchConcurrency: opt.FetchConcurrency,
	}
}

func (db *DB) Store() Store {
	return db.store
}

func (db *DB) Encoding() Encoding {
	return db.enc
}

func (db *DB) Logger() *zap.Logger {
	return db.logger
}

func (db *DB) Schema() *Schema {
	return db.schema
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.store.Close()
}

func (db *DB) get(ctx context.Context, key string) ([]byte, error) {
	db.ReadCount.Add(1)
	data, err := db.store.Get(ctx, key)
	if db.verbose {
		db.logger.Debug("db: GET", zap.String("key", key), zap.Int("size", len(data)), zap.Bool("found", data != nil), zap.Error(err))
	}
	return data, storeErr("get", key, err)
}

func (db *DB) set(ctx context.Context, key string, data []byte) error {
	db.WriteCount.Add(1)
	err := db.store.Set(ctx, key, data)
	if db.verbose {
		db.logger.Debug("db: SET", zap.String("key", key), zap.Int("size", len(data)), zap.Error(err))
	}
	return storeErr("set", key, err)
}

func (db *DB) del(ctx context.Context, key string) error {
	db.DeleteCount.Add(1)
	err := db.store.Delete(ctx, key)
	if db.verbose {
		db.logger.Debug("db: DEL", zap.String("key", key), zap.Error(err))
	}
	return storeErr("delete", key, err)
}

func (db *DB) exists(ctx context.Context, key string) (bool, error) {
	db.ReadCount.Add(1)
	found, err := db.store.Exists(ctx, key)
	if db.verbose {
		db.logger.Debug("db: EXISTS", zap.String("key", key), zap.Bool("found", found), zap.Error(err))
	}
	return found, storeErr("exists", key, err)
}

func (db *DB) keys(ctx context.Context, pattern string) ([]string, error) {
	db.ScanCount.Add(1)
	keys, err := db.store.Keys(ctx, pattern)
	if db.verbose {
		db.logger.Debug("db: KEYS", zap.String("pattern", pattern), zap.Int("count", len(keys)), zap.Error(err))
	}
	return keys, storeErr("keys", pattern, err)
}

// Keys lists raw store keys matching a glob pattern, sorted.
func (db *DB) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := db.keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// GetRaw returns the stored bytes under key, or nil if absent.
func (db *DB) GetRaw(ctx context.Context, key string) ([]byte, error) {
	return db.get(ctx, key)
}
