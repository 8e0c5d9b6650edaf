package kvdoc

import (
	"slices"
	"strings"
)

// Match evaluates the filter against a document. Absent fields never match
// Eq, Gt-family, Contains or In, and always match Ne and NotIn. Comparison
// operators require numbers on both sides; nothing is coerced.
func (f Filter) Match(doc Value) bool {
	v, present := doc.Get(f.Field)
	switch f.Op {
	case OpEq:
		return present && v.Equal(f.Operand)
	case OpNe:
		return !(present && v.Equal(f.Operand))
	case OpGt, OpGte, OpLt, OpLte:
		a, ok1 := v.AsNumber()
		b, ok2 := f.Operand.AsNumber()
		if !present || !ok1 || !ok2 {
			return false
		}
		switch f.Op {
		case OpGt:
			return a > b
		case OpGte:
			return a >= b
		case OpLt:
			return a < b
		default:
			return a <= b
		}
	case OpContains:
		s, ok1 := v.AsString()
		sub, ok2 := f.Operand.AsString()
		return present && ok1 && ok2 && strings.Contains(s, sub)
	case OpIn:
		return present && containsValue(f.Operand, v)
	case OpNotIn:
		return !present || !containsValue(f.Operand, v)
	default:
		return false
	}
}

func containsValue(list, v Value) bool {
	elems, _ := list.AsArray()
	for _, el := range elems {
		if el.Equal(v) {
			return true
		}
	}
	return false
}

// MatchAll reports whether doc passes every filter.
func MatchAll(filters []Filter, doc Value) bool {
	for _, f := range filters {
		if !f.Match(doc) {
			return false
		}
	}
	return true
}

func filterScanned[R any](items []scanned[R], filters []Filter) []scanned[R] {
	if len(filters) == 0 {
		return items
	}
	return slices.DeleteFunc(items, func(item scanned[R]) bool {
		return !MatchAll(filters, item.val)
	})
}

// CompareFields orders two documents by a field. Numbers compare
// numerically, strings lexicographically, booleans false before true. An
// absent field sorts before a present one. Any other combination, including
// mixed kinds, compares equal.
func CompareFields(a, b Value, field string) int {
	av, aok := a.Get(field)
	bv, bok := b.Get(field)
	return compareSortValues(av, aok, bv, bok)
}

func compareSortValues(a Value, aok bool, b Value, bok bool) int {
	if aok && bok {
		if x, ok := a.AsNumber(); ok {
			if y, ok := b.AsNumber(); ok {
				return compareOrdered(x, y)
			}
		}
		if x, ok := a.AsString(); ok {
			if y, ok := b.AsString(); ok {
				return strings.Compare(x, y)
			}
		}
		if x, ok := a.AsBool(); ok {
			if y, ok := b.AsBool(); ok {
				return compareBools(x, y)
			}
		}
		return 0
	}
	switch {
	case !aok && bok:
		return -1
	case aok && !bok:
		return 1
	default:
		return 0
	}
}

// compareOrdered treats NaN as equal to everything, unlike cmp.Compare.
func compareOrdered(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func compareBools(x, y bool) int {
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	default:
		return 1
	}
}

func sortScanned[R any](items []scanned[R], sort SortSpec) {
	slices.SortStableFunc(items, func(x, y scanned[R]) int {
		c := CompareFields(x.val, y.val, sort.Field)
		if sort.Desc {
			return -c
		}
		return c
	})
}
