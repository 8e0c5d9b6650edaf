package kvdoc

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("invalid kind %d", int(k))
	}
}

// Value is an immutable JSON-like value. Documents are evaluated as Values
// when filtering and sorting, independently of the Go type they decode into.
//
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  *Object
}

// Field is a single named member of an Object.
type Field struct {
	Name  string
	Value Value
}

// Object is an ordered collection of uniquely named fields.
type Object struct {
	fields []Field
	index  map[string]int
}

func Null() Value             { return Value{} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Number(f float64) Value  { return Value{kind: KindNumber, n: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: slices.Clone(vs)} }

// ObjectValue wraps obj into a Value. A nil obj is treated as an empty object.
func ObjectValue(obj *Object) Value {
	if obj == nil {
		obj = NewObject()
	}
	return Value{kind: KindObject, obj: obj}
}

// NewObject builds an Object from fields. A later field with the same name
// replaces an earlier one but keeps the earlier position.
func NewObject(fields ...Field) *Object {
	obj := &Object{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if i, ok := obj.index[f.Name]; ok {
			obj.fields[i].Value = f.Value
			continue
		}
		obj.index[f.Name] = len(obj.fields)
		obj.fields = append(obj.fields, f)
	}
	return obj
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool returns the boolean and true if v is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns v as float64 if it is a number. Strings are never coerced.
func (v Value) AsNumber() (float64, bool) {
	return v.n, v.kind == KindNumber
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsArray returns the elements of an array value. The slice must not be modified.
func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Get returns the named field of an object value. It reports false for
// absent fields and for non-object values.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	return v.obj.Get(name)
}

// Equal reports structural equality. Values of different kinds are never
// equal, so Number(18) does not equal String("18"). Object field order is
// ignored.
func (v Value) Equal(u Value) bool {
	if v.kind != u.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == u.b
	case KindNumber:
		return v.n == u.n
	case KindString:
		return v.s == u.s
	case KindArray:
		return slices.EqualFunc(v.arr, u.arr, Value.Equal)
	case KindObject:
		return v.obj.Equal(u.obj)
	default:
		panic("unreachable")
	}
}

// Interface converts v into plain Go values: nil, bool, float64, string,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, el := range v.arr {
			out[i] = el.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, f := range v.obj.fields {
			out[f.Name] = f.Value.Interface()
		}
		return out
	default:
		panic("unreachable")
	}
}

func (v Value) String() string {
	raw, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", v.Interface())
	}
	return string(raw)
}

func (obj *Object) Len() int {
	if obj == nil {
		return 0
	}
	return len(obj.fields)
}

func (obj *Object) Get(name string) (Value, bool) {
	if obj == nil {
		return Value{}, false
	}
	i, ok := obj.index[name]
	if !ok {
		return Value{}, false
	}
	return obj.fields[i].Value, true
}

func (obj *Object) Has(name string) bool {
	_, ok := obj.Get(name)
	return ok
}

// Fields returns a copy of the fields in their stored order.
func (obj *Object) Fields() []Field {
	if obj == nil {
		return nil
	}
	return slices.Clone(obj.fields)
}

func (obj *Object) Names() []string {
	if obj == nil {
		return nil
	}
	names := make([]string, len(obj.fields))
	for i, f := range obj.fields {
		names[i] = f.Name
	}
	return names
}

// With returns a copy of obj with the named field set to val.
func (obj *Object) With(name string, val Value) *Object {
	fields := append(obj.Fields(), Field{name, val})
	return NewObject(fields...)
}

// Without returns a copy of obj without the named field.
func (obj *Object) Without(name string) *Object {
	fields := slices.DeleteFunc(obj.Fields(), func(f Field) bool { return f.Name == name })
	return NewObject(fields...)
}

func (obj *Object) Equal(other *Object) bool {
	if obj.Len() != other.Len() {
		return false
	}
	if obj.Len() == 0 {
		return true
	}
	for _, f := range obj.fields {
		ov, ok := other.Get(f.Name)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}

// ValueOf converts a Go value into a Value. Supported inputs are nil, Value,
// *Object, bool, all integer and float types, string, json.Number, slices,
// arrays, and maps with string keys (fields sorted by name). Pointers are
// dereferenced; a nil pointer becomes null.
func ValueOf(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Object:
		return ObjectValue(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", string(x), err)
		}
		return Number(f), nil
	case []any:
		arr := make([]Value, len(x))
		for i, el := range x {
			v, err := ValueOf(el)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		return valueOfMap(reflect.ValueOf(x))
	}
	return valueOfReflect(reflect.ValueOf(x))
}

// MustValueOf is like ValueOf but panics on unsupported input.
func MustValueOf(x any) Value {
	return must(ValueOf(x))
}

func valueOfReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		fallthrough
	case reflect.Array:
		arr := make([]Value, rv.Len())
		for i := range arr {
			v, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %v", rv.Type().Key())
		}
		if rv.IsNil() {
			return Null(), nil
		}
		return valueOfMap(rv)
	default:
		if !rv.IsValid() {
			return Null(), nil
		}
		return Value{}, fmt.Errorf("unsupported value type %v", rv.Type())
	}
}

func valueOfMap(rv reflect.Value) (Value, error) {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	fields := make([]Field, len(keys))
	for i, k := range keys {
		v, err := ValueOf(rv.MapIndex(k).Interface())
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", k.String(), err)
		}
		fields[i] = Field{k.String(), v}
	}
	return ObjectValue(NewObject(fields...)), nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
