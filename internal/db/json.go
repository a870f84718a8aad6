package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON stores a typed value in a jsonb column.
type JSON[T any] struct {
	V T
}

// NewJSON wraps v for storage.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{V: v}
}

// Scan implements sql.Scanner.
func (j *JSON[T]) Scan(value any) error {
	var zero T
	switch v := value.(type) {
	case nil:
		j.V = zero
		return nil
	case []byte:
		if len(v) == 0 {
			j.V = zero
			return nil
		}
		return json.Unmarshal(v, &j.V)
	case string:
		if v == "" {
			j.V = zero
			return nil
		}
		return json.Unmarshal([]byte(v), &j.V)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}
}

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("encoding json column: %w", err)
	}
	return data, nil
}

// MarshalJSON encodes the wrapped value directly.
func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.V)
}

// UnmarshalJSON decodes into the wrapped value.
func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.V)
}
