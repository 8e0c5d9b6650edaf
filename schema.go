package kvdoc

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/andreyvit/kvdoc/validate"
)

// Schema holds per-collection field rules applied to untyped documents.
// Typed records validate themselves via the Validator interface.
type Schema struct {
	collections       map[string]Rules
	collectionsByName []string
}

func NewSchema() *Schema {
	return &Schema{
		collections: make(map[string]Rules),
	}
}

// AddCollection registers rules for a collection. Registering the same
// collection twice is a programming error.
func (scm *Schema) AddCollection(name string, rules Rules) *Schema {
	if name == "" {
		panic("kvdoc: empty collection name")
	}
	if strings.IndexByte(name, keySep) >= 0 {
		panic(fmt.Errorf("kvdoc: collection name %q contains %q", name, keySep))
	}
	if _, dup := scm.collections[name]; dup {
		panic(fmt.Errorf("kvdoc: collection %q defined twice", name))
	}
	scm.collections[name] = rules
	scm.collectionsByName = append(scm.collectionsByName, name)
	return scm
}

func (scm *Schema) Collections() []string {
	if scm == nil {
		return nil
	}
	return slices.Clone(scm.collectionsByName)
}

// Rules returns the rules of a collection, or nil if none are registered.
func (scm *Schema) Rules(collection string) Rules {
	if scm == nil {
		return nil
	}
	return scm.collections[collection]
}

// Rules maps field names to rules.
type Rules map[string]Rule

// Rule describes the constraints of one document field. Zero values mean
// "no constraint".
type Rule struct {
	Type      FieldType `json:"type,omitempty"`
	Required  bool      `json:"required,omitempty"`
	Min       *float64  `json:"min,omitempty"`
	Max       *float64  `json:"max,omitempty"`
	MinLength *int      `json:"min_length,omitempty"`
	MaxLength *int      `json:"max_length,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
	Email     bool      `json:"email,omitempty"`
	URL       bool      `json:"url,omitempty"`

	Custom func(v Value) bool `json:"-"`
}

type FieldType string

const (
	AnyType    FieldType = ""
	StringType FieldType = "string"
	NumberType FieldType = "number"
	IntType    FieldType = "int"
	BoolType   FieldType = "bool"
	ArrayType  FieldType = "array"
	ObjectType FieldType = "object"
)

func Float64Ptr(f float64) *float64 { return &f }
func IntPtr(i int) *int             { return &i }

// Validate checks fields against the rules, in field name order, and
// returns the first failure. With partial set, missing required fields are
// not reported; this is used for patches.
func (rules Rules) Validate(fields *Object, partial bool) error {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		var v Value
		var present bool
		if fields != nil {
			v, present = fields.Get(name)
		}
		if err := rules[name].check(name, v, present, partial); err != nil {
			return err
		}
	}
	return nil
}

func (r Rule) check(field string, v Value, present, partial bool) error {
	if !present {
		if r.Required && !partial {
			return validate.Errorf(field, "is required")
		}
		return nil
	}
	if err := r.Type.check(field, v); err != nil {
		return err
	}

	if s, ok := v.AsString(); ok {
		if r.MinLength != nil {
			if err := validate.MinLength(field, s, *r.MinLength); err != nil {
				return err
			}
		}
		if r.MaxLength != nil {
			if err := validate.MaxLength(field, s, *r.MaxLength); err != nil {
				return err
			}
		}
		if r.Email {
			if err := validate.Email(field, s); err != nil {
				return err
			}
		}
		if r.URL {
			if err := validate.URL(field, s); err != nil {
				return err
			}
		}
		if r.Pattern != "" {
			if err := validate.Pattern(field, s, r.Pattern); err != nil {
				return err
			}
		}
	}

	if n, ok := v.AsNumber(); ok {
		if r.Min != nil {
			if err := validate.Min(field, n, *r.Min); err != nil {
				return err
			}
		}
		if r.Max != nil {
			if err := validate.Max(field, n, *r.Max); err != nil {
				return err
			}
		}
	}

	if r.Custom != nil && !r.Custom(v) {
		return validate.Errorf(field, "failed custom validation")
	}
	return nil
}

func (ft FieldType) check(field string, v Value) error {
	var ok bool
	switch ft {
	case AnyType:
		return nil
	case StringType:
		ok = v.Kind() == KindString
	case NumberType:
		ok = v.Kind() == KindNumber
	case IntType:
		n, isNum := v.AsNumber()
		ok = isNum && n == math.Trunc(n)
	case BoolType:
		ok = v.Kind() == KindBool
	case ArrayType:
		ok = v.Kind() == KindArray
	case ObjectType:
		ok = v.Kind() == KindObject
	default:
		panic(fmt.Errorf("kvdoc: unknown field type %q", string(ft)))
	}
	if !ok {
		return validate.Errorf(field, "must be of type %s", string(ft))
	}
	return nil
}
