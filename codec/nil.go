package codec

import "reflect"

func isNil(m Marshaler) bool {
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
