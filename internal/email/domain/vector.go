package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Vector is an embedding stored in pgvector's text format ("[1,2,3]"),
// which is also valid JSON for drivers without a vector type.
type Vector []float32

// Value implements driver.Valuer. An empty vector is stored as NULL.
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

// Scan implements sql.Scanner
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	var raw []byte
	switch val := value.(type) {
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	default:
		return fmt.Errorf("unsupported vector type %T", value)
	}
	if len(raw) == 0 {
		*v = nil
		return nil
	}
	var out []float32
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to parse vector: %w", err)
	}
	*v = out
	return nil
}
