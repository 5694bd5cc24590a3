package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Root errors shared by all packages. Extensions register their own with
// codes outside of this range.
var (
	ErrUnauthorized = Register(2, "unauthorized")
	ErrNotFound     = Register(3, "not found")
	// ErrMsg marks a message that cannot be processed.
	ErrMsg = Register(4, "invalid message")
	// ErrModel marks a record that must not be persisted.
	ErrModel = Register(5, "invalid model")
	// ErrDuplicate is returned when a unique key or index is already taken.
	ErrDuplicate = Register(6, "duplicate")
	// ErrHuman marks a code path that correct wiring never reaches.
	ErrHuman    = Register(7, "coding error")
	ErrEmpty    = Register(9, "value is empty")
	ErrState    = Register(10, "invalid state")
	ErrType     = Register(11, "invalid type")
	ErrInput    = Register(14, "invalid input")
	ErrOverflow = Register(16, "an operation cannot be completed due to value overflow")
	// ErrMetadata is returned for a missing or broken metadata header.
	ErrMetadata = Register(17, "invalid metadata")
	// ErrDatabase wraps failures of the underlying storage.
	ErrDatabase = Register(19, "database")
	// ErrIteratorDone is returned by an exhausted iterator.
	ErrIteratorDone = Register(20, "iterator done")

	// ErrPanic marks a recovered panic. Its message is never shown outside
	// of debug mode.
	ErrPanic = Register(111222, "panic")
)

// codes holds every registered error. Code 1 is reserved for errors that
// were not created from a registered one.
var codes = map[uint32]*Error{
	internalABCICode: nil,
}

// Register declares a new root error. It panics if code is already taken,
// so it must only be called during package initialization.
func Register(code uint32, description string) *Error {
	if prev, ok := codes[code]; ok {
		desc := "reserved"
		if prev != nil {
			desc = prev.desc
		}
		panic(fmt.Sprintf("error code %d already registered as %q", code, desc))
	}
	e := &Error{code: code, desc: description}
	codes[code] = e
	return e
}

// Error is a root error. Every error returned at runtime should be created
// from one, with New or Wrap, so that it can be classified with Is and
// reported with a stable ABCI code.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

func (e Error) ABCICode() uint32 {
	return e.code
}

// New is a shorthand for Wrap(e, description).
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

func (e *Error) Newf(format string, args ...interface{}) error {
	return Wrap(e, fmt.Sprintf(format, args...))
}

// Is reports whether err is this error or was created from it. Grouped
// errors match if any member matches. A nil kind matches only nil errors.
func (kind *Error) Is(err error) bool {
	if kind == nil {
		return isNilErr(err)
	}
	for err != nil {
		if err == kind {
			return true
		}
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				if kind.Is(e) {
					return true
				}
			}
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// isNilErr also treats a typed nil pointer as nil.
func isNilErr(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Wrap annotates err with a description. The innermost wrap records a stack
// trace. Wrapping nil returns nil.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	return &wrappedError{parent: err, msg: description}
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.parent.Error()
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Recover turns a panic into an ErrPanic assigned to *err. It must be
// deferred directly.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

type causer interface {
	Cause() error
}

type unpacker interface {
	Unpack() []error
}
