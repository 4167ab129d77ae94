package reviews

import (
	"encoding/json"
	"reflect"
)

// Optional records whether a JSON field was present. A present null leaves
// Value nil with Set true.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a present Optional holding JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// optionalStringValue lets validator tags apply to the wrapped string.
func optionalStringValue(field reflect.Value) any {
	o, ok := field.Interface().(Optional[string])
	if !ok || o.Value == nil {
		return nil
	}
	return *o.Value
}
