package kvdoc

import (
	"strings"
)

var operatorAliases = map[string]Operator{
	"=":      OpEq,
	"==":     OpEq,
	"!=":     OpNe,
	"<>":     OpNe,
	">":      OpGt,
	">=":     OpGte,
	"<":      OpLt,
	"<=":     OpLte,
	"notin":  OpNotIn,
	"not_in": OpNotIn,
	"like":   OpContains,
}

// ParseOperator accepts the canonical operator names (eq, ne, gt, gte, lt,
// lte, contains, in, nin) and a few symbolic aliases.
func ParseOperator(name string) (Operator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for op, s := range operatorNames {
		if s == name {
			return Operator(op), nil
		}
	}
	if op, ok := operatorAliases[name]; ok {
		return op, nil
	}
	return 0, queryErrf("", "", nil, "unknown operator %q", name)
}

// ParseFilter parses "field:op:value". The value is taken as JSON when it
// parses as JSON and as a plain string otherwise. For in and nin, a value
// that is not a JSON array is split on commas, each element again being
// JSON or a plain string.
func ParseFilter(expr string) (Filter, error) {
	field, rest, ok := splitByte(expr, ':')
	if !ok {
		return Filter{}, queryErrf("", "", nil, "filter %q: expected field:op:value", expr)
	}
	opName, raw, ok := splitByte(rest, ':')
	if !ok {
		return Filter{}, queryErrf("", field, nil, "filter %q: expected field:op:value", expr)
	}
	field = strings.TrimSpace(field)
	op, err := ParseOperator(opName)
	if err != nil {
		return Filter{}, err
	}

	var operand Value
	switch op {
	case OpIn, OpNotIn:
		if v, err := ParseJSON([]byte(raw)); err == nil && v.Kind() == KindArray {
			operand = v
		} else {
			var elems []Value
			for _, s := range strings.Split(raw, ",") {
				elems = append(elems, parseLooseValue(strings.TrimSpace(s)))
			}
			operand = Array(elems...)
		}
	case OpContains:
		if v, err := ParseJSON([]byte(raw)); err == nil && v.Kind() == KindString {
			operand = v
		} else {
			operand = String(raw)
		}
	default:
		operand = parseLooseValue(raw)
	}

	f := Filter{Field: field, Op: op, Operand: operand}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseLooseValue(raw string) Value {
	if v, err := ParseJSON([]byte(raw)); err == nil {
		return v
	}
	return String(raw)
}

// ParseSort parses "field" or "-field" (descending).
func ParseSort(s string) (SortSpec, error) {
	s = strings.TrimSpace(s)
	desc := false
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		desc, s = true, rest
	}
	if s == "" {
		return SortSpec{}, queryErrf("", "", nil, "empty sort field")
	}
	return SortSpec{Field: s, Desc: desc}, nil
}
