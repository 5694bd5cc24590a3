package errors

import (
	"errors"
	"fmt"
)

const (
	// SuccessABCICode is the code of a successful ABCI response.
	SuccessABCICode = 0

	// Errors that were not created from a registered error are reported
	// with this code and a generic message.
	internalABCICode uint32 = 1
	internalABCILog         = "internal error"
)

// ABCIInfo returns the code and log of an ABCI response for err. Only errors
// created from a registered error expose their message. In debug mode the
// full message, including a stack trace if available, is always returned.
func ABCIInfo(err error, debug bool) (uint32, string) {
	if isNilErr(err) {
		return SuccessABCICode, ""
	}
	code := abciCode(err)
	switch {
	case debug:
		return code, fmt.Sprintf("%+v", err)
	case code == internalABCICode:
		return code, internalABCILog
	default:
		return code, err.Error()
	}
}

type coder interface {
	ABCICode() uint32
}

func abciCode(err error) uint32 {
	if isNilErr(err) {
		return SuccessABCICode
	}
	for {
		if c, ok := err.(coder); ok {
			return c.ABCICode()
		}
		c, ok := err.(causer)
		if !ok {
			return internalABCICode
		}
		err = c.Cause()
	}
}

// Root returns the registered error err was created from by wrapping. A
// group reports the root of its first member, the same one its ABCI code
// comes from. Nil is returned for errors that do not originate from a
// registered one.
func Root(err error) *Error {
	for !isNilErr(err) {
		if e, ok := err.(*Error); ok {
			return e
		}
		if u, ok := err.(unpacker); ok {
			if errs := u.Unpack(); len(errs) > 0 {
				return Root(errs[0])
			}
			return nil
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// Redact replaces errors that do not originate from a registered error with
// a generic internal error. Panics are always redacted, their message may
// reveal details of the host. Nothing is replaced in debug mode.
func Redact(err error, debug bool) error {
	if debug {
		return err
	}
	if ErrPanic.Is(err) || abciCode(err) == internalABCICode {
		return errors.New(internalABCILog)
	}
	return err
}
