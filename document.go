package kvdoc

import (
	"context"
	"fmt"
)

// Document is an untyped record: an object value stored under
// "{collection}:{id}".
type Document struct {
	Collection string
	ID         string
	Fields     *Object
}

func (doc *Document) Key() string {
	return RecordKey(doc.Collection, doc.ID)
}

// Value returns the document fields as an object Value.
func (doc *Document) Value() Value {
	return ObjectValue(doc.Fields)
}

func (doc *Document) Get(field string) (Value, bool) {
	if doc.Fields == nil {
		return Value{}, false
	}
	return doc.Fields.Get(field)
}

func (doc *Document) String() string {
	return fmt.Sprintf("%s %s", doc.Key(), doc.Value().String())
}

// SaveDocument checks doc against the schema rules of its collection and
// overwrites its key.
func (db *DB) SaveDocument(ctx context.Context, doc *Document) error {
	if doc.Collection == "" {
		return queryErrf("", "", nil, "empty collection name")
	}
	if err := db.schema.Rules(doc.Collection).Validate(doc.Fields, false); err != nil {
		return err
	}
	return db.putDocument(ctx, doc)
}

func (db *DB) putDocument(ctx context.Context, doc *Document) error {
	key := doc.Key()
	data, err := db.enc.Marshal(doc.Value())
	if err != nil {
		return dataErrf(key, nil, err, "failed to encode document")
	}
	return db.set(ctx, key, data)
}

// GetDocument loads a single document. A missing key yields a
// *NotFoundError; a value that is not an object yields a
// *SerializationError.
func (db *DB) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	key := RecordKey(collection, id)
	data, err := db.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	doc, err := db.decodeDocument(key, data)
	if err != nil {
		return nil, err
	}
	doc.Collection, doc.ID = collection, id
	return doc, nil
}

// UpdateDocument merges patch into an existing document. Rules are checked
// on the patch alone, so required fields may be omitted from it.
func (db *DB) UpdateDocument(ctx context.Context, collection, id string, patch *Object) (*Document, error) {
	if err := db.schema.Rules(collection).Validate(patch, true); err != nil {
		return nil, err
	}
	doc, err := db.GetDocument(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	doc.Fields = NewObject(append(doc.Fields.Fields(), patch.Fields()...)...)
	if err := db.putDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (db *DB) DeleteDocument(ctx context.Context, collection, id string) error {
	return db.del(ctx, RecordKey(collection, id))
}

func (db *DB) decodeDocument(key string, data []byte) (*Document, error) {
	val, err := db.enc.ParseValue(data)
	if err != nil {
		return nil, dataErrf(key, data, err, "failed to decode document")
	}
	obj, ok := val.AsObject()
	if !ok {
		return nil, dataErrf(key, data, nil, "document is a %v, not an object", val.Kind())
	}
	doc := &Document{Fields: obj}
	doc.Collection, doc.ID, _ = SplitRecordKey(key)
	return doc, nil
}
