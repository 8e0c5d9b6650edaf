package kvdoc

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// scanned is one document that survived both parses during a collection
// scan.
type scanned[R any] struct {
	key string
	val Value
	row R
}

// decodeFunc turns a stored value into the caller's row type. Returning
// false drops the document from the scan.
type decodeFunc[R any] func(collection, id string, data []byte, val Value) (R, bool)

// scanCollection enumerates "{collection}:*", fetches every key and parses
// each value both as a Value and as a row. Keys that vanished between
// enumeration and fetch and values that fail either parse are skipped. Any
// store error aborts the scan.
//
// This is not a snapshot: concurrent writers may be observed partially.
func scanCollection[R any](ctx context.Context, db *DB, collection string, decode decodeFunc[R]) ([]scanned[R], error) {
	keys, err := db.keys(ctx, collectionPattern(collection))
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)

	values, err := db.fetchAll(ctx, keys)
	if err != nil {
		return nil, err
	}

	prefix := RecordKey(collection, "")
	result := make([]scanned[R], 0, len(keys))
	var dropped int
	for i, key := range keys {
		data := values[i]
		id, ok := strings.CutPrefix(key, prefix)
		if data == nil || !ok {
			continue
		}
		val, err := db.enc.ParseValue(data)
		if err != nil {
			dropped++
			db.logger.Debug("skipping malformed document", zap.String("key", key), zap.Error(err))
			continue
		}
		row, ok := decode(collection, id, data, val)
		if !ok {
			dropped++
			db.logger.Debug("skipping undecodable document", zap.String("key", key))
			continue
		}
		result = append(result, scanned[R]{key, val, row})
	}
	if dropped > 0 {
		db.logger.Debug("scan dropped documents", zap.String("collection", collection), zap.Int("dropped", dropped), zap.Int("total", len(keys)))
	}
	return result, nil
}

// fetchAll gets the values of keys, returned in the same order. Missing
// keys yield nil entries.
func (db *DB) fetchAll(ctx context.Context, keys []string) ([][]byte, error) {
	values := make([][]byte, len(keys))
	if db.fetchConcurrency < 2 || len(keys) < 2 {
		for i, key := range keys {
			data, err := db.get(ctx, key)
			if err != nil {
				return nil, err
			}
			values[i] = data
		}
		return values, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.fetchConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			data, err := db.get(gctx, key)
			if err != nil {
				return err
			}
			values[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func decodeModel[T any, PT modelPtr[T]](db *DB) decodeFunc[*T] {
	return func(collection, id string, data []byte, val Value) (*T, bool) {
		row := new(T)
		if err := db.enc.Unmarshal(data, row); err != nil {
			return nil, false
		}
		fillID(PT(row), id)
		return row, true
	}
}

// decodeValueOnly accepts any well-formed stored value. Counting matches on
// the parsed value alone, so rows the model type cannot hold still count.
func decodeValueOnly() decodeFunc[struct{}] {
	return func(collection, id string, data []byte, val Value) (struct{}, bool) {
		return struct{}{}, true
	}
}

func decodeDocumentFunc() decodeFunc[*Document] {
	return func(collection, id string, data []byte, val Value) (*Document, bool) {
		obj, ok := val.AsObject()
		if !ok {
			return nil, false
		}
		return &Document{Collection: collection, ID: id, Fields: obj}, true
	}
}
