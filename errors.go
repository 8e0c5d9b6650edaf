package kvdoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andreyvit/kvdoc/validate"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidQuery = errors.New("invalid query")
	ErrValidation   = validate.ErrInvalid
)

// ValidationError is returned by Save when a record fails its checks.
type ValidationError = validate.Error

// StoreError wraps a failure reported by the Store (connectivity, protocol).
type StoreError struct {
	Op  string
	Key string
	Err error
}

func storeErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{op, key, err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

// SerializationError reports a value that could not be encoded or decoded.
type SerializationError struct {
	Key  string
	Data []byte
	Err  error
	Msg  string
}

func dataErrf(key string, data []byte, err error, format string, args ...any) error {
	return &SerializationError{key, data, err, fmt.Sprintf(format, args...)}
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Error() string {
	const prefixLen = 64
	const suffixLen = 32

	var buf strings.Builder
	if e.Key != "" {
		buf.WriteString(e.Key)
		buf.WriteString(": ")
	}
	buf.WriteString(e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	if e.Data != nil {
		n := len(e.Data)
		if n <= prefixLen+suffixLen {
			fmt.Fprintf(&buf, ": (%d) %x", n, e.Data)
		} else {
			fmt.Fprintf(&buf, ": (%d) %x...%x", n, e.Data[:prefixLen], e.Data[n-suffixLen:])
		}
	}
	return buf.String()
}

// NotFoundError is returned by single-record lookups of a missing key.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", RecordKey(e.Collection, e.ID))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// QueryError reports a malformed query, detected before any store I/O.
type QueryError struct {
	Collection string
	Field      string
	Msg        string
	Err        error
}

func queryErrf(coll, field string, err error, format string, args ...any) error {
	return &QueryError{coll, field, fmt.Sprintf(format, args...), err}
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func (e *QueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}

func (e *QueryError) Error() string {
	var buf strings.Builder
	buf.WriteString("invalid query")
	if e.Collection != "" {
		buf.WriteString(" on ")
		buf.WriteString(e.Collection)
	}
	if e.Field != "" {
		buf.WriteByte('.')
		buf.WriteString(e.Field)
	}
	buf.WriteString(": ")
	buf.WriteString(e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// asValidationError makes sure errors returned by Validate methods satisfy
// errors.Is(err, ErrValidation).
func asValidationError(err error) error {
	if err == nil || errors.Is(err, ErrValidation) {
		return err
	}
	return &ValidationError{Message: err.Error()}
}
