// Package validate provides stateless field checks that run before a record
// is persisted. Every check returns nil or an *Error naming the field.
package validate

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrInvalid is matched by every *Error and *Errors via errors.Is.
var ErrInvalid = errors.New("validation failed")

// Error describes a single failed check.
type Error struct {
	Field   string
	Message string
}

func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Errors collects several failures.
type Errors struct {
	List []*Error
}

func (es *Errors) Add(field, message string) {
	es.List = append(es.List, &Error{Field: field, Message: message})
}

// Check records err if it is non-nil. Errors that are not *Error are kept
// with an empty field name.
func (es *Errors) Check(err error) {
	if err == nil {
		return
	}
	var ve *Error
	if errors.As(err, &ve) {
		es.List = append(es.List, ve)
	} else {
		es.List = append(es.List, &Error{Message: err.Error()})
	}
}

func (es *Errors) Empty() bool {
	return es == nil || len(es.List) == 0
}

// Err returns nil when no failures were collected, otherwise es itself.
func (es *Errors) Err() error {
	if es.Empty() {
		return nil
	}
	return es
}

func (es *Errors) Error() string {
	msgs := make([]string, len(es.List))
	for i, e := range es.List {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, ", ")
}

func (es *Errors) Is(target error) bool {
	return target == ErrInvalid
}

// First returns the first non-nil error. Checks are usually written inline,
// so the caller sees the earliest failure in declaration order.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func Min[T cmp.Ordered](field string, value, min T) error {
	if value < min {
		return Errorf(field, "must be >= %v", min)
	}
	return nil
}

func Max[T cmp.Ordered](field string, value, max T) error {
	if value > max {
		return Errorf(field, "must be <= %v", max)
	}
	return nil
}

func Range[T cmp.Ordered](field string, value, min, max T) error {
	return First(Min(field, value, min), Max(field, value, max))
}

// MinLength checks the length of s in characters (runes).
func MinLength(field, s string, min int) error {
	if utf8.RuneCountInString(s) < min {
		return Errorf(field, "length must be >= %d characters", min)
	}
	return nil
}

func MaxLength(field, s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return Errorf(field, "length must be <= %d characters", max)
	}
	return nil
}

func LengthRange(field, s string, min, max int) error {
	return First(MinLength(field, s, min), MaxLength(field, s, max))
}

func Required(field, s string) error {
	if s == "" {
		return Errorf(field, "is required")
	}
	return nil
}

func RequiredPtr[T any](field string, p *T) error {
	if p == nil {
		return Errorf(field, "is required")
	}
	return nil
}

var (
	patternCache sync.Map // string -> *regexp.Regexp
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Pattern checks s against a regular expression. An invalid expression is
// reported as a failure of the field, not as a panic.
func Pattern(field, s, pattern string) error {
	re, err := compilePattern(pattern)
	if err != nil {
		return Errorf(field, "invalid pattern %q: %v", pattern, err)
	}
	if !re.MatchString(s) {
		return Errorf(field, "does not match pattern %s", pattern)
	}
	return nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func Email(field, s string) error {
	if !emailRe.MatchString(s) {
		return Errorf(field, "invalid email format")
	}
	return nil
}

// URL accepts absolute http and https URLs with a host.
func URL(field, s string) error {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return Errorf(field, "invalid URL format (must start with http:// or https://)")
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return Errorf(field, "invalid URL format")
	}
	return nil
}
