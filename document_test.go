package kvdoc

import (
	"errors"
	"testing"
)

func setupDocs(t testing.TB) *DB {
	scm := NewSchema().AddCollection("user", Rules{
		"name":  {Type: StringType, Required: true, MinLength: IntPtr(1)},
		"age":   {Type: IntType, Min: Float64Ptr(0), Max: Float64Ptr(150)},
		"email": {Email: true},
	})
	return setup(t, Options{Schema: scm})
}

func TestDocumentCRUD(t *testing.T) {
	db := setupDocs(t)

	doc := &Document{Collection: "user", ID: "1", Fields: obj("name", "Alice", "age", 30)}
	ensure(db.SaveDocument(ctx, doc))
	deepEqual(t, string(must(db.GetRaw(ctx, "user:1"))), `{"name":"Alice","age":30}`)

	got := must(db.GetDocument(ctx, "user", "1"))
	deepEqual(t, got.Collection, "user")
	deepEqual(t, got.ID, "1")
	deepEqual(t, got.Fields, doc.Fields)
	deepEqual(t, got.String(), `user:1 {"name":"Alice","age":30}`)

	upd := must(db.UpdateDocument(ctx, "user", "1", obj("age", 31, "email", "a@example.com")))
	deepEqual(t, upd.Fields, obj("name", "Alice", "age", 31, "email", "a@example.com"))
	deepEqual(t, string(must(db.GetRaw(ctx, "user:1"))), `{"name":"Alice","age":31,"email":"a@example.com"}`)

	ensure(db.DeleteDocument(ctx, "user", "1"))
	_, err := db.GetDocument(ctx, "user", "1")
	deepEqual(t, errors.Is(err, ErrNotFound), true)

	// deleting again is fine
	ensure(db.DeleteDocument(ctx, "user", "1"))
}

func TestDocumentValidation(t *testing.T) {
	db := setupDocs(t)

	err := db.SaveDocument(ctx, &Document{Collection: "user", ID: "1", Fields: obj("age", 30)})
	deepEqual(t, errors.Is(err, ErrValidation), true)
	deepEqual(t, err.Error(), "name: is required")
	deepEqual(t, must(db.Keys(ctx, "*")), []string(nil))
	deepEqual(t, db.WriteCount.Load(), uint64(0))

	ensure(db.SaveDocument(ctx, &Document{Collection: "user", ID: "1", Fields: obj("name", "Alice")}))

	_, err = db.UpdateDocument(ctx, "user", "1", obj("age", 200))
	deepEqual(t, err.Error(), "age: must be <= 150")
	deepEqual(t, string(must(db.GetRaw(ctx, "user:1"))), `{"name":"Alice"}`)

	// collections without rules accept anything
	ensure(db.SaveDocument(ctx, &Document{Collection: "note", ID: "x", Fields: obj("name", 42)}))

	err = db.SaveDocument(ctx, &Document{ID: "x"})
	deepEqual(t, errors.Is(err, ErrInvalidQuery), true)
}

func TestUpdateDocumentMissing(t *testing.T) {
	db := setupDocs(t)
	_, err := db.UpdateDocument(ctx, "user", "nope", obj("age", 1))
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("** UpdateDocument() = %v, wanted *NotFoundError", err)
	}
	deepEqual(t, *nf, NotFoundError{"user", "nope"})
	deepEqual(t, db.WriteCount.Load(), uint64(0))
}

func TestGetDocumentMalformed(t *testing.T) {
	db := setupDocs(t)
	ensure(db.Store().Set(ctx, "user:1", []byte(`{"name":`)))
	ensure(db.Store().Set(ctx, "user:2", []byte(`[1,2]`)))

	for _, id := range []string{"1", "2"} {
		_, err := db.GetDocument(ctx, "user", id)
		var se *SerializationError
		if !errors.As(err, &se) {
			t.Fatalf("** GetDocument(%s) = %v, wanted *SerializationError", id, err)
		}
		deepEqual(t, se.Key, "user:"+id)
	}
}

func TestDocumentNilFields(t *testing.T) {
	db := setup(t, Options{})
	ensure(db.SaveDocument(ctx, &Document{Collection: "note", ID: "1"}))
	deepEqual(t, string(must(db.GetRaw(ctx, "note:1"))), `{}`)
	doc := must(db.GetDocument(ctx, "note", "1"))
	deepEqual(t, doc.Fields.Len(), 0)
	_, ok := doc.Get("x")
	deepEqual(t, ok, false)
}
