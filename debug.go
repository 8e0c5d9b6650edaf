package kvdoc

import (
	"context"
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpCollectionHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats
	DumpMigrations

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the whole store in a human-readable form, for tests and
// debugging. Collections are listed in name order, rows in key order.
func (db *DB) Dump(ctx context.Context, f DumpFlags) (string, error) {
	var buf strings.Builder
	colls, err := db.Collections(ctx)
	if err != nil {
		return "", err
	}
	for _, coll := range colls {
		if err := db.dumpCollection(ctx, &buf, f, coll); err != nil {
			return "", err
		}
	}
	if f.Contains(DumpMigrations) {
		recs, err := db.MigrationHistory(ctx)
		if err != nil {
			return "", err
		}
		if len(recs) > 0 {
			fmt.Fprintln(&buf, dumpSep1)
			fmt.Fprintf(&buf, "%s (%d applied)\n", MigrationsKey, len(recs))
			for _, rec := range recs {
				fmt.Fprintf(&buf, "%s: %s %s %s\n", rec.ID, rec.Name, rec.AppliedAt.Format("2006-01-02T15:04:05Z07:00"), rec.Checksum)
			}
		}
	}
	return buf.String(), nil
}

func (db *DB) dumpCollection(ctx context.Context, w *strings.Builder, f DumpFlags, coll string) error {
	if f.Contains(DumpCollectionHeaders) {
		n, err := db.Count(ctx, NewQuerySpec(coll))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d keys)\n", coll, n)
	}
	if f.Contains(DumpStats) {
		s, err := db.CollectionStats(ctx, coll)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s.stats: documents = %d, malformed = %d, data_size = %d\n", coll, s.Documents, s.Malformed, s.DataSize)
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(w, dumpSep2)
		}
		keys, err := db.Keys(ctx, collectionPattern(coll))
		if err != nil {
			return err
		}
		for _, key := range keys {
			data, err := db.get(ctx, key)
			if err != nil {
				return err
			}
			if data == nil {
				continue
			}
			val, err := db.enc.ParseValue(data)
			if err != nil {
				fmt.Fprintf(w, "%s ** ERROR: %v (%s)\n", key, err, hexstr(data))
				continue
			}
			fmt.Fprintf(w, "%s = %s\n", key, val.String())
		}
	}
	return nil
}
