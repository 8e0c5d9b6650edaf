package kvdoc

import (
	"context"
	"slices"
)

type CollectionStats struct {
	Keys      int
	Documents int
	Malformed int
	DataSize  int
}

// CollectionStats fetches every document of the collection and reports
// how many decode as objects.
func (db *DB) CollectionStats(ctx context.Context, collection string) (CollectionStats, error) {
	keys, err := db.keys(ctx, collectionPattern(collection))
	if err != nil {
		return CollectionStats{}, err
	}
	slices.Sort(keys)
	values, err := db.fetchAll(ctx, keys)
	if err != nil {
		return CollectionStats{}, err
	}

	s := CollectionStats{Keys: len(keys)}
	for _, data := range values {
		if data == nil {
			continue
		}
		s.DataSize += len(data)
		if val, err := db.enc.ParseValue(data); err == nil && val.IsObject() {
			s.Documents++
		} else {
			s.Malformed++
		}
	}
	return s, nil
}

// Collections lists the distinct collection names present in the store,
// sorted. The migration bookkeeping key is not a collection.
func (db *DB) Collections(ctx context.Context) ([]string, error) {
	keys, err := db.keys(ctx, "*")
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]bool)
	for _, key := range keys {
		if key == MigrationsKey {
			continue
		}
		coll, _, ok := SplitRecordKey(key)
		if !ok || seen[coll] {
			continue
		}
		seen[coll] = true
		names = append(names, coll)
	}
	slices.Sort(names)
	return names, nil
}

// Counters is a snapshot of the DB operation counters.
type Counters struct {
	Reads   uint64
	Writes  uint64
	Deletes uint64
	Scans   uint64
}

func (db *DB) Counters() Counters {
	return Counters{
		Reads:   db.ReadCount.Load(),
		Writes:  db.WriteCount.Load(),
		Deletes: db.DeleteCount.Load(),
		Scans:   db.ScanCount.Load(),
	}
}
