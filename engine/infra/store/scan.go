// Package store holds the row models and query helpers shared by the SQL drivers.
package store

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ToJSONB marshals a value to JSONB-compatible bytes, returning nil for nil input.
func ToJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Map) && rv.IsNil() {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling to jsonb: %w", err)
	}
	return data, nil
}

// FromJSONB unmarshals JSONB data into a pointer, setting nil if the source is nil.
func FromJSONB[T any](src []byte, dst **T) error {
	if src == nil {
		*dst = nil
		return nil
	}
	var target T
	if err := json.Unmarshal(src, &target); err != nil {
		return fmt.Errorf("unmarshaling from jsonb: %w", err)
	}
	*dst = &target
	return nil
}

// fromJSONMap decodes an object column. NULL and empty input yield an empty map.
func fromJSONMap[M ~map[K]V, K comparable, V any](src []byte) (M, error) {
	out := make(M)
	if len(src) == 0 {
		return out, nil
	}
	var decoded *M
	if err := FromJSONB(src, &decoded); err != nil {
		return nil, err
	}
	if decoded != nil && *decoded != nil {
		out = *decoded
	}
	return out, nil
}
