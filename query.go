package kvdoc

import (
	"context"
	"fmt"
	"strings"
)

type Operator int

const (
	OpEq Operator = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpContains
	OpIn
	OpNotIn
)

var operatorNames = [...]string{
	OpEq:       "eq",
	OpNe:       "ne",
	OpGt:       "gt",
	OpGte:      "gte",
	OpLt:       "lt",
	OpLte:      "lte",
	OpContains: "contains",
	OpIn:       "in",
	OpNotIn:    "nin",
}

func (op Operator) String() string {
	if op >= 0 && int(op) < len(operatorNames) {
		return operatorNames[op]
	}
	return fmt.Sprintf("invalid operator %d", int(op))
}

func (op Operator) valid() bool {
	return op >= OpEq && op <= OpNotIn
}

// Filter is a single predicate on a top-level document field.
type Filter struct {
	Field   string
	Op      Operator
	Operand Value
}

func (f Filter) String() string {
	return f.Field + ":" + f.Op.String() + ":" + f.Operand.String()
}

// Validate checks the shape of the filter without evaluating it.
func (f Filter) Validate() error {
	switch {
	case f.Field == "":
		return queryErrf("", "", nil, "empty field name")
	case !f.Op.valid():
		return queryErrf("", f.Field, nil, "%v", f.Op)
	case (f.Op == OpIn || f.Op == OpNotIn) && f.Operand.Kind() != KindArray:
		return queryErrf("", f.Field, nil, "%v operand must be an array, got %v", f.Op, f.Operand.Kind())
	case f.Op == OpContains && f.Operand.Kind() != KindString:
		return queryErrf("", f.Field, nil, "contains operand must be a string, got %v", f.Operand.Kind())
	}
	return nil
}

type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

type SortSpec struct {
	Field string
	Desc  bool
}

func (s SortSpec) String() string {
	if s.Desc {
		return s.Field + " desc"
	}
	return s.Field + " asc"
}

// NoLimit as QuerySpec.Limit returns all matching documents.
const NoLimit = -1

// QuerySpec is a conjunction of filters over one collection, with optional
// sorting and pagination. Skip and Limit apply after filtering and sorting,
// skip first.
type QuerySpec struct {
	Collection string
	Filters    []Filter
	Sort       *SortSpec
	Skip       int
	Limit      int
}

// NewQuerySpec returns an unfiltered, unlimited query over collection.
func NewQuerySpec(collection string) QuerySpec {
	return QuerySpec{Collection: collection, Limit: NoLimit}
}

func (spec *QuerySpec) Validate() error {
	if spec.Collection == "" {
		return queryErrf("", "", nil, "empty collection name")
	}
	for _, f := range spec.Filters {
		if err := f.Validate(); err != nil {
			err.(*QueryError).Collection = spec.Collection
			return err
		}
	}
	if spec.Sort != nil && spec.Sort.Field == "" {
		return queryErrf(spec.Collection, "", nil, "empty sort field")
	}
	if spec.Skip < 0 {
		return queryErrf(spec.Collection, "", nil, "negative skip %d", spec.Skip)
	}
	if spec.Limit < NoLimit {
		return queryErrf(spec.Collection, "", nil, "negative limit %d", spec.Limit)
	}
	return nil
}

func (spec QuerySpec) String() string {
	var buf strings.Builder
	buf.WriteString(spec.Collection)
	for _, f := range spec.Filters {
		buf.WriteString(" where ")
		buf.WriteString(f.String())
	}
	if spec.Sort != nil {
		buf.WriteString(" sort ")
		buf.WriteString(spec.Sort.String())
	}
	if spec.Skip > 0 {
		fmt.Fprintf(&buf, " skip %d", spec.Skip)
	}
	if spec.Limit != NoLimit {
		fmt.Fprintf(&buf, " limit %d", spec.Limit)
	}
	return buf.String()
}

// Condition is an operator with a not-yet-converted operand, used with
// Query.Where.
type Condition struct {
	Op      Operator
	Operand any
}

func Eq(v any) Condition          { return Condition{OpEq, v} }
func Ne(v any) Condition          { return Condition{OpNe, v} }
func Gt(v any) Condition          { return Condition{OpGt, v} }
func Gte(v any) Condition         { return Condition{OpGte, v} }
func Lt(v any) Condition          { return Condition{OpLt, v} }
func Lte(v any) Condition         { return Condition{OpLte, v} }
func Contains(s string) Condition { return Condition{OpContains, s} }
func In(vs ...any) Condition      { return Condition{OpIn, vs} }
func NotIn(vs ...any) Condition   { return Condition{OpNotIn, vs} }

// Filter converts the condition into a Filter on field.
func (c Condition) Filter(field string) (Filter, error) {
	operand, err := ValueOf(c.Operand)
	if err != nil {
		return Filter{}, queryErrf("", field, err, "invalid %v operand", c.Op)
	}
	f := Filter{Field: field, Op: c.Op, Operand: operand}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Query builds and runs a QuerySpec for a record type. Construction errors
// are kept and returned by Exec and Count before any store access.
type Query[T any, PT modelPtr[T]] struct {
	db   *DB
	spec QuerySpec
	err  error
}

func NewQuery[T any, PT modelPtr[T]](db *DB) *Query[T, PT] {
	return &Query[T, PT]{
		db:   db,
		spec: NewQuerySpec(collectionOf[T, PT]()),
	}
}

func (q *Query[T, PT]) fail(err error) *Query[T, PT] {
	if q.err == nil {
		if qe, ok := err.(*QueryError); ok && qe.Collection == "" {
			qe.Collection = q.spec.Collection
		}
		q.err = err
	}
	return q
}

func (q *Query[T, PT]) Where(field string, cond Condition) *Query[T, PT] {
	f, err := cond.Filter(field)
	if err != nil {
		return q.fail(err)
	}
	q.spec.Filters = append(q.spec.Filters, f)
	return q
}

func (q *Query[T, PT]) Filter(f Filter) *Query[T, PT] {
	if err := f.Validate(); err != nil {
		return q.fail(err)
	}
	q.spec.Filters = append(q.spec.Filters, f)
	return q
}

// SortBy sets the sort field, replacing any previous one.
func (q *Query[T, PT]) SortBy(field string, order SortOrder) *Query[T, PT] {
	if field == "" {
		return q.fail(queryErrf("", "", nil, "empty sort field"))
	}
	q.spec.Sort = &SortSpec{Field: field, Desc: order == Desc}
	return q
}

func (q *Query[T, PT]) Skip(n int) *Query[T, PT] {
	if n < 0 {
		return q.fail(queryErrf("", "", nil, "negative skip %d", n))
	}
	q.spec.Skip = n
	return q
}

// Limit caps the number of results; NoLimit removes the cap.
func (q *Query[T, PT]) Limit(n int) *Query[T, PT] {
	if n < NoLimit {
		return q.fail(queryErrf("", "", nil, "negative limit %d", n))
	}
	q.spec.Limit = n
	return q
}

func (q *Query[T, PT]) Err() error {
	return q.err
}

// Spec returns a copy of the query built so far.
func (q *Query[T, PT]) Spec() QuerySpec {
	spec := q.spec
	spec.Filters = append([]Filter(nil), q.spec.Filters...)
	if q.spec.Sort != nil {
		s := *q.spec.Sort
		spec.Sort = &s
	}
	return spec
}

func (q *Query[T, PT]) Exec(ctx context.Context) ([]*T, error) {
	if q.err != nil {
		return nil, q.err
	}
	return execQuery(ctx, q.db, &q.spec, decodeModel[T, PT](q.db))
}

func (q *Query[T, PT]) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	return countQuery(ctx, q.db, &q.spec, decodeValueOnly())
}

// First returns the first result, or nil if there is none. An explicit
// Limit(0) still yields nil.
func (q *Query[T, PT]) First(ctx context.Context) (*T, error) {
	saved := q.spec.Limit
	if saved == NoLimit || saved > 1 {
		q.spec.Limit = 1
	}
	rows, err := q.Exec(ctx)
	q.spec.Limit = saved
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Find runs an untyped query. Stored values that are not objects are
// skipped.
func (db *DB) Find(ctx context.Context, spec QuerySpec) ([]*Document, error) {
	return execQuery(ctx, db, &spec, decodeDocumentFunc())
}

// Count counts the documents matching spec.Filters, ignoring sorting and
// pagination.
func (db *DB) Count(ctx context.Context, spec QuerySpec) (int, error) {
	return countQuery(ctx, db, &spec, decodeDocumentFunc())
}

func execQuery[R any](ctx context.Context, db *DB, spec *QuerySpec, decode decodeFunc[R]) ([]R, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	items, err := scanCollection(ctx, db, spec.Collection, decode)
	if err != nil {
		return nil, err
	}
	items = filterScanned(items, spec.Filters)
	if spec.Sort != nil {
		sortScanned(items, *spec.Sort)
	}
	items = paginate(items, spec.Skip, spec.Limit)

	rows := make([]R, len(items))
	for i, item := range items {
		rows[i] = item.row
	}
	return rows, nil
}

func countQuery[R any](ctx context.Context, db *DB, spec *QuerySpec, decode decodeFunc[R]) (int, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if len(spec.Filters) == 0 {
		keys, err := db.keys(ctx, collectionPattern(spec.Collection))
		if err != nil {
			return 0, err
		}
		return len(keys), nil
	}
	items, err := scanCollection(ctx, db, spec.Collection, decode)
	if err != nil {
		return 0, err
	}
	return len(filterScanned(items, spec.Filters)), nil
}

func paginate[E any](items []E, skip, limit int) []E {
	if skip >= len(items) {
		return items[:0]
	}
	items = items[skip:]
	if limit != NoLimit && limit < len(items) {
		items = items[:limit]
	}
	return items
}
