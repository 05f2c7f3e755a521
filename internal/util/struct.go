package util

import (
	"reflect"

	"github.com/pkg/errors"
)

// IsStructInitialized returns an error naming the first nil-able field of the
// given struct (pointer) that has not been initialized.
func IsStructInitialized(s any) error {
	v := reflect.Indirect(reflect.ValueOf(s))
	if v.Kind() != reflect.Struct {
		return errors.New("not a struct")
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch field.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if field.IsNil() {
				return errors.Errorf("field %s is not initialized", t.Field(i).Name)
			}
		default:
		}
	}
	return nil
}
