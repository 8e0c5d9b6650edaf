package kvdoc

import (
	"context"
	"errors"
)

// Model is implemented by every record type stored through this package.
// Collection must not depend on the receiver's fields; it is called on zero
// values.
type Model interface {
	Collection() string
	ID() string
	SetID(id string)
}

// Validator is an optional Model extension checked by Save before any store
// access.
type Validator interface {
	Validate() error
}

// modelPtr constrains generic functions to pointer-implemented models.
type modelPtr[T any] interface {
	*T
	Model
}

const keySep = ':'

// RecordKey returns the store key of a record.
func RecordKey(collection, id string) string {
	return collection + string(keySep) + id
}

// SplitRecordKey is the inverse of RecordKey. The collection is everything
// up to the first colon.
func SplitRecordKey(key string) (collection, id string, ok bool) {
	return splitByte(key, keySep)
}

func collectionOf[T any, PT modelPtr[T]]() string {
	var zero T
	return PT(&zero).Collection()
}

// Save validates row, encodes it and overwrites its key unconditionally.
func Save(ctx context.Context, db *DB, row Model) error {
	if v, ok := row.(Validator); ok {
		if err := v.Validate(); err != nil {
			return asValidationError(err)
		}
	}
	key := RecordKey(row.Collection(), row.ID())
	data, err := db.enc.Marshal(row)
	if err != nil {
		return dataErrf(key, nil, err, "failed to encode %T", row)
	}
	return db.set(ctx, key, data)
}

// FindByID loads a single record. A missing key yields a *NotFoundError,
// an undecodable value yields a *SerializationError.
func FindByID[T any, PT modelPtr[T]](ctx context.Context, db *DB, id string) (*T, error) {
	coll := collectionOf[T, PT]()
	key := RecordKey(coll, id)
	data, err := db.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, &NotFoundError{Collection: coll, ID: id}
	}
	row := new(T)
	if err := db.enc.Unmarshal(data, row); err != nil {
		return nil, dataErrf(key, data, err, "failed to decode %T", row)
	}
	fillID(PT(row), id)
	return row, nil
}

// Exists reports whether a record with the given id is stored.
func Exists[T any, PT modelPtr[T]](ctx context.Context, db *DB, id string) (bool, error) {
	return db.exists(ctx, RecordKey(collectionOf[T, PT](), id))
}

// Delete removes row's key. Deleting a missing record is not an error.
func Delete(ctx context.Context, db *DB, row Model) error {
	return db.del(ctx, RecordKey(row.Collection(), row.ID()))
}

func DeleteByID[T any, PT modelPtr[T]](ctx context.Context, db *DB, id string) error {
	return db.del(ctx, RecordKey(collectionOf[T, PT](), id))
}

// FindAll returns every decodable record of the collection, in key order.
func FindAll[T any, PT modelPtr[T]](ctx context.Context, db *DB) ([]*T, error) {
	return NewQuery[T, PT](db).Exec(ctx)
}

// CountAll counts the keys of the collection without fetching them.
func CountAll[T any, PT modelPtr[T]](ctx context.Context, db *DB) (int, error) {
	return NewQuery[T, PT](db).Count(ctx)
}

func fillID(row Model, id string) {
	if row.ID() == "" {
		row.SetID(id)
	}
}

// IsNotFound is a shorthand for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
