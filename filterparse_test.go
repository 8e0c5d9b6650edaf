package kvdoc

import (
	"errors"
	"testing"
)

func TestParseOperator(t *testing.T) {
	for op := OpEq; op <= OpNotIn; op++ {
		got, err := ParseOperator(op.String())
		ensure(err)
		deepEqual(t, got, op)
	}
	deepEqual(t, must(ParseOperator(">=")), OpGte)
	deepEqual(t, must(ParseOperator(" NE ")), OpNe)
	deepEqual(t, must(ParseOperator("not_in")), OpNotIn)
	if _, err := ParseOperator("between"); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("ParseOperator(between) err = %v, wanted ErrInvalidQuery", err)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr string
		want Filter
	}{
		{"age:gte:18", Filter{"age", OpGte, Number(18)}},
		{"age:eq:\"18\"", Filter{"age", OpEq, String("18")}},
		{"name:eq:alice", Filter{"name", OpEq, String("alice")}},
		{"url:eq:http://x", Filter{"url", OpEq, String("http://x")}},
		{"active:ne:true", Filter{"active", OpNe, Bool(true)}},
		{"deleted:eq:null", Filter{"deleted", OpEq, Null()}},
		{"name:eq:", Filter{"name", OpEq, String("")}},
		{"name:contains:123", Filter{"name", OpContains, String("123")}},
		{"name:eq:tru", Filter{"name", OpEq, String("tru")}},
		{"name:ne:fals", Filter{"name", OpNe, String("fals")}},
		{"name:eq:nul", Filter{"name", OpEq, String("nul")}},
		{"name:contains:\"a b\"", Filter{"name", OpContains, String("a b")}},
		{"status:in:active,banned", Filter{"status", OpIn, Array(String("active"), String("banned"))}},
		{"age:in:1, 2,x", Filter{"age", OpIn, Array(Number(1), Number(2), String("x"))}},
		{"age:nin:[1,\"2\"]", Filter{"age", OpNotIn, Array(Number(1), String("2"))}},
		{"age:in:5", Filter{"age", OpIn, Array(Number(5))}},
	}
	for _, tt := range tests {
		got, err := ParseFilter(tt.expr)
		if err != nil {
			t.Errorf("** ParseFilter(%q) failed: %v", tt.expr, err)
			continue
		}
		deepEqual(t, got, tt.want)
	}

	for _, bad := range []string{"age", "age:gte", ":eq:1", "age:between:1"} {
		if _, err := ParseFilter(bad); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("** ParseFilter(%q) err = %v, wanted ErrInvalidQuery", bad, err)
		}
	}
}

func TestParseFilterStringRoundtrip(t *testing.T) {
	for _, expr := range []string{"age:gte:18", `name:eq:"alice"`, `tags:in:["a","b"]`, "x:nin:[1,2]"} {
		f := must(ParseFilter(expr))
		deepEqual(t, must(ParseFilter(f.String())), f)
	}
}

func TestParseSort(t *testing.T) {
	deepEqual(t, must(ParseSort("age")), SortSpec{Field: "age"})
	deepEqual(t, must(ParseSort("-age")), SortSpec{Field: "age", Desc: true})
	if _, err := ParseSort("-"); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("ParseSort(-) err = %v, wanted ErrInvalidQuery", err)
	}
}
