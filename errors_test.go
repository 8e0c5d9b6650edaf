package kvdoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/andreyvit/kvdoc/validate"
)

func TestSerializationError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf("user:1", []byte{0xAA, 0xBB}, inner, "oops")
		var se *SerializationError
		if !errors.As(err, &se) {
			t.Fatalf("err = %T, wanted *SerializationError", err)
		}
		if !errors.Is(err, inner) {
			t.Fatalf("errors.Is(err, inner) = false, wanted true")
		}
		deepEqual(t, err.Error(), "user:1: oops: inner: (2) aabb")
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf("", data, nil, "oops")
		s := err.Error()
		if !strings.HasPrefix(s, "oops: (200) 0001") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}

func TestStoreError(t *testing.T) {
	inner := errors.New("connection refused")
	err := storeErr("get", "user:1", inner)
	deepEqual(t, err.Error(), "store get user:1: connection refused")
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}

	// no double wrapping
	if storeErr("set", "x", err) != err {
		t.Fatalf("storeErr rewrapped a *StoreError")
	}
	if storeErr("get", "k", nil) != nil {
		t.Fatalf("storeErr(nil) != nil")
	}
	deepEqual(t, storeErr("keys", "", inner).Error(), "store keys: connection refused")
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{Collection: "user", ID: "42"})
	deepEqual(t, err.Error(), "user:42 not found")
	deepEqual(t, errors.Is(err, ErrNotFound), true)
	deepEqual(t, errors.Is(err, ErrInvalidQuery), false)
}

func TestQueryError(t *testing.T) {
	inner := errors.New("bad")
	err := queryErrf("user", "age", inner, "invalid %s operand", "gt")
	deepEqual(t, err.Error(), "invalid query on user.age: invalid gt operand: bad")
	deepEqual(t, errors.Is(err, ErrInvalidQuery), true)
	deepEqual(t, errors.Is(err, inner), true)
	deepEqual(t, queryErrf("", "", nil, "empty").Error(), "invalid query: empty")
}

func TestAsValidationError(t *testing.T) {
	if asValidationError(nil) != nil {
		t.Fatalf("asValidationError(nil) != nil")
	}

	ve := validate.Errorf("name", "is required")
	if asValidationError(ve) != error(ve) {
		t.Fatalf("asValidationError rewrapped a *ValidationError")
	}

	var es validate.Errors
	es.Add("a", "x")
	es.Add("b", "y")
	err := asValidationError(es.Err())
	deepEqual(t, err.Error(), "a: x, b: y")
	deepEqual(t, errors.Is(err, ErrValidation), true)

	err = asValidationError(errors.New("custom failure"))
	deepEqual(t, errors.Is(err, ErrValidation), true)
	deepEqual(t, err.Error(), "custom failure")
}
