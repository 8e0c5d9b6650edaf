package kvdoc

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestMemStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemStore()
	})
}

func TestFileStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return must(NewFileStore(filepath.Join(t.TempDir(), "sub", "store.json")))
	})
}

func TestBoltStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return must(OpenBoltStore(filepath.Join(t.TempDir(), "store.db"), BoltOptions{IsTesting: true}))
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return must(OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "store.sqlite")))
	})
}

func TestRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		srv := miniredis.RunT(t)
		return must(OpenRedisStore(ctx, "redis://"+srv.Addr()+"/0"))
	})
}

func TestRedisStoreSharedClient(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()

	s := NewRedisStore(rdb)
	ensure(s.Set(ctx, "user:1", []byte("x")))
	ensure(s.Close())
	// the client stays usable after the store is closed
	deepEqual(t, must(rdb.Get(ctx, "user:1").Result()), "x")
	deepEqual(t, must(srv.Get("user:1")), "x")
}

func TestFileStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s := must(NewFileStore(path))
	ensure(s.Set(ctx, "b", []byte("2")))
	ensure(s.Set(ctx, "a", []byte("1")))
	ensure(s.Set(ctx, "c", []byte{}))
	ensure(s.Delete(ctx, "b"))

	s2 := must(NewFileStore(path))
	deepEqual(t, sortedKeys(t, s2, "*"), []string{"a", "c"})
	deepEqual(t, string(must(s2.Get(ctx, "a"))), "1")
	deepEqual(t, must(s2.Get(ctx, "c")), []byte{})
	deepEqual(t, s2.Path(), path)
}

func TestFileStoreCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ensure(os.WriteFile(path, []byte("{nope"), 0o644))
	_, err := NewFileStore(path)
	if err == nil {
		t.Fatalf("NewFileStore succeeded on a corrupted snapshot")
	}

	ensure(os.WriteFile(path, []byte(`{"version":2,"items":[]}`), 0o644))
	_, err = NewFileStore(path)
	if err == nil {
		t.Fatalf("NewFileStore succeeded on an unknown version")
	}
}

func TestMemStoreClosed(t *testing.T) {
	s := NewMemStore()
	ensure(s.Close())
	if _, err := s.Get(ctx, "a"); err == nil {
		t.Fatalf("Get after Close succeeded")
	}
	if err := s.Set(ctx, "a", nil); err == nil {
		t.Fatalf("Set after Close succeeded")
	}
}

func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("get set delete", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		v, err := s.Get(ctx, "user:1")
		ensure(err)
		if v != nil {
			t.Fatalf("Get(missing) = %q, wanted nil", v)
		}
		deepEqual(t, must(s.Exists(ctx, "user:1")), false)

		ensure(s.Set(ctx, "user:1", []byte(`{"a":1}`)))
		deepEqual(t, string(must(s.Get(ctx, "user:1"))), `{"a":1}`)
		deepEqual(t, must(s.Exists(ctx, "user:1")), true)

		ensure(s.Set(ctx, "user:1", []byte(`{"a":2}`)))
		deepEqual(t, string(must(s.Get(ctx, "user:1"))), `{"a":2}`)

		ensure(s.Delete(ctx, "user:1"))
		deepEqual(t, must(s.Exists(ctx, "user:1")), false)
		v, err = s.Get(ctx, "user:1")
		ensure(err)
		if v != nil {
			t.Fatalf("Get(deleted) = %q, wanted nil", v)
		}
		ensure(s.Delete(ctx, "user:1"))
	})

	t.Run("empty value", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		ensure(s.Set(ctx, "k", []byte{}))
		v := must(s.Get(ctx, "k"))
		if v == nil || len(v) != 0 {
			t.Fatalf("Get(empty) = %#v, wanted empty non-nil", v)
		}
		deepEqual(t, must(s.Exists(ctx, "k")), true)
	})

	t.Run("binary value", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		data := []byte{0, 1, 0xff, 0x80, '\n'}
		ensure(s.Set(ctx, "bin", data))
		deepEqual(t, must(s.Get(ctx, "bin")), data)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		data := []byte("abc")
		ensure(s.Set(ctx, "k", data))
		data[0] = 'X'
		v := must(s.Get(ctx, "k"))
		deepEqual(t, string(v), "abc")
		v[0] = 'Y'
		deepEqual(t, string(must(s.Get(ctx, "k"))), "abc")
	})

	t.Run("keys", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		for _, k := range []string{"user:1", "user:2", "user:10", "users:1", "post:1", "user", "torm:migrations", "a[b]:1", "a*:1"} {
			ensure(s.Set(ctx, k, []byte("x")))
		}
		deepEqual(t, sortedKeys(t, s, "user:*"), []string{"user:1", "user:10", "user:2"})
		deepEqual(t, sortedKeys(t, s, "user:?"), []string{"user:1", "user:2"})
		deepEqual(t, sortedKeys(t, s, "user*"), []string{"user", "user:1", "user:10", "user:2", "users:1"})
		deepEqual(t, sortedKeys(t, s, "user:[12]"), []string{"user:1", "user:2"})
		deepEqual(t, sortedKeys(t, s, "*:1"), []string{"a*:1", "a[b]:1", "post:1", "user:1", "users:1"})
		deepEqual(t, sortedKeys(t, s, collectionPattern("a[b]")), []string{"a[b]:1"})
		deepEqual(t, sortedKeys(t, s, collectionPattern("a*")), []string{"a*:1"})
		deepEqual(t, sortedKeys(t, s, "torm:migrations"), []string{"torm:migrations"})
		deepEqual(t, sortedKeys(t, s, "nope:*"), []string(nil))
		deepEqual(t, len(sortedKeys(t, s, "*")), 9)
	})

	t.Run("many keys", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		var want []string
		for i := 0; i < 1200; i++ {
			k := RecordKey("item", fmt.Sprintf("%c%d", 'a'+i%26, i))
			want = append(want, k)
			ensure(s.Set(ctx, k, []byte("x")))
		}
		slices.Sort(want)
		deepEqual(t, sortedKeys(t, s, "item:*"), want)
	})

	t.Run("db roundtrip", func(t *testing.T) {
		s := open(t)
		db := Open(s, Options{})
		defer db.Close()

		u := &User{UserID: "1", Name: "foo", Age: 20}
		ensure(Save(ctx, db, u))
		ensure(Save(ctx, db, &User{UserID: "2", Name: "bar", Age: 10}))
		deepEqual(t, must(FindByID[User](ctx, db, "1")), u)
		deepEqual(t, userIDs(must(NewQuery[User](db).SortBy("age", Asc).Exec(ctx))), []string{"2", "1"})
		deepEqual(t, must(CountAll[User](ctx, db)), 2)
	})
}

func sortedKeys(t testing.TB, s Store, pattern string) []string {
	t.Helper()
	keys := must(s.Keys(ctx, pattern))
	if len(keys) == 0 {
		return nil
	}
	slices.Sort(keys)
	return keys
}
