package kvdoc

import (
	"strings"
	"testing"
)

func TestCollectionStats(t *testing.T) {
	db := setup(t, Options{})
	ensure(db.Store().Set(ctx, "user:1", []byte(`{"name":"A"}`)))
	ensure(db.Store().Set(ctx, "user:2", []byte(`{`)))
	ensure(db.Store().Set(ctx, "user:3", []byte(`42`)))
	ensure(db.Store().Set(ctx, "userx:1", []byte(`{}`)))

	deepEqual(t, must(db.CollectionStats(ctx, "user")), CollectionStats{
		Keys:      3,
		Documents: 1,
		Malformed: 2,
		DataSize:  12 + 1 + 2,
	})
	deepEqual(t, must(db.CollectionStats(ctx, "none")), CollectionStats{})
}

func TestCollections(t *testing.T) {
	db := setup(t, Options{})
	ensure(Save(ctx, db, &User{UserID: "1", Name: "A"}))
	ensure(Save(ctx, db, &Post{PostID: "1", Title: "Hi"}))
	ensure(Save(ctx, db, &Post{PostID: "2", Title: "Yo"}))
	ensure(db.Store().Set(ctx, "nocolon", []byte(`{}`)))

	m := NewMigrator(db, MigratorOptions{Now: newFakeClock().Now})
	m.Add("001", "init", nil, nil)
	must(m.Migrate(ctx))

	deepEqual(t, must(db.Collections(ctx)), []string{"post", "user"})
}

func TestCounters(t *testing.T) {
	db := setup(t, Options{})
	ensure(Save(ctx, db, &User{UserID: "1", Name: "A"}))
	must(FindByID[User](ctx, db, "1"))
	must(Exists[User](ctx, db, "1"))
	ensure(DeleteByID[User](ctx, db, "1"))
	isempty(t, must(FindAll[User](ctx, db)))

	deepEqual(t, db.Counters(), Counters{Reads: 2, Writes: 1, Deletes: 1, Scans: 1})
}

func TestDump(t *testing.T) {
	db := setup(t, Options{})
	ensure(Save(ctx, db, &User{UserID: "1", Name: "A", Age: 30}))
	ensure(db.SaveDocument(ctx, &Document{Collection: "post", ID: "p1", Fields: obj("title", "Hi")}))

	m := NewMigrator(db, MigratorOptions{Now: newFakeClock().Now})
	m.Add("001", "init", nil, nil)
	must(m.Migrate(ctx))

	sep1, sep2 := strings.Repeat("=", 80), strings.Repeat("-", 60)
	e := strings.Join([]string{
		sep1,
		"post (1 keys)",
		`post.stats: documents = 1, malformed = 0, data_size = 14`,
		sep2,
		`post:p1 = {"title":"Hi"}`,
		sep1,
		"user (1 keys)",
		`user.stats: documents = 1, malformed = 0, data_size = 45`,
		sep2,
		`user:1 = {"id":"1","name":"A","age":30,"active":false}`,
		sep1,
		"torm:migrations (1 applied)",
		"001: init 2024-05-01T12:00:01Z " + migrationChecksum("001"),
		"",
	}, "\n")
	deepEqual(t, must(db.Dump(ctx, DumpAll)), e)

	e = strings.Join([]string{
		`post:p1 = {"title":"Hi"}`,
		`user:1 = {"id":"1","name":"A","age":30,"active":false}`,
		"",
	}, "\n")
	deepEqual(t, must(db.Dump(ctx, DumpRows)), e)
}

func TestDumpMalformedRow(t *testing.T) {
	db := setup(t, Options{})
	ensure(db.Store().Set(ctx, "user:1", []byte(`{`)))
	s := must(db.Dump(ctx, DumpRows))
	if !strings.HasPrefix(s, "user:1 ** ERROR: ") || !strings.HasSuffix(s, " (7b)\n") {
		t.Errorf("** got %q, wanted an error row", s)
	}
}

func TestDumpFlagsContains(t *testing.T) {
	deepEqual(t, DumpAll.Contains(DumpRows|DumpStats), true)
	deepEqual(t, DumpRows.Contains(DumpRows|DumpStats), false)
	deepEqual(t, (DumpRows | DumpStats).Contains(DumpStats), true)
}

func TestEncodingNames(t *testing.T) {
	tests := []struct {
		s string
		e Encoding
	}{
		{"", JSON},
		{"json", JSON},
		{"JSON", JSON},
		{"msgpack", MsgPack},
		{"MessagePack", MsgPack},
	}
	for _, tt := range tests {
		deepEqual(t, must(ParseEncoding(tt.s)), tt.e)
	}
	if _, err := ParseEncoding("xml"); err == nil {
		t.Errorf("** ParseEncoding(xml) succeeded")
	}
	deepEqual(t, JSON.String(), "json")
	deepEqual(t, MsgPack.String(), "msgpack")
	deepEqual(t, Encoding(7).String(), "invalid encoding 7")
}
