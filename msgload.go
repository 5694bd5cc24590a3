package xnft

import (
	"reflect"

	"github.com/iov-one/xnft/errors"
)

// setMsg copies msg into destination, which must be a pointer to a value of
// the same type as msg.
func setMsg(destination interface{}, msg Msg) error {
	dst := reflect.ValueOf(destination)
	if dst.Kind() != reflect.Ptr || dst.IsNil() {
		return errors.Wrap(errors.ErrHuman, "destination must be a non nil pointer")
	}
	src := reflect.ValueOf(msg)
	if src.Type() == dst.Type() {
		dst.Elem().Set(src.Elem())
		return nil
	}
	if src.Type() == dst.Elem().Type() {
		dst.Elem().Set(src)
		return nil
	}
	return errors.Wrapf(errors.ErrType, "want %T, got %T", destination, msg)
}
