package dto

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a JSON field that was omitted from one that was
// sent, including one sent as null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the field is
// present in the payload.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns nil when the field was omitted, a pointer to the zero value
// when it was null, and a pointer to the value otherwise.
func (o Optional[T]) Ptr() *T {
	if !o.Set {
		return nil
	}
	v := o.Value
	if o.Null {
		var zero T
		v = zero
	}
	return &v
}
