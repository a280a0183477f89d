package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
)

// Vector is one feature row in schema order. Values are finite by
// construction; a Vector is only produced by Assemble or NewVector.
type Vector struct {
	schema *Schema
	values []float64
}

// Assemble places named values into schema order. A column that is absent,
// NaN or infinite, or a name the schema does not know, fails the whole
// vector with a *FeatureCorruptError.
func Assemble(schema *Schema, values map[string]float64) (*Vector, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}

	corrupt := &FeatureCorruptError{Schema: schema.version}
	row := make([]float64, len(schema.names))
	for i, name := range schema.names {
		v, ok := values[name]
		switch {
		case !ok:
			corrupt.Missing = append(corrupt.Missing, name)
		case !common.IsFinite(v):
			corrupt.NonFinite = append(corrupt.NonFinite, name)
		default:
			row[i] = v
		}
	}
	for name := range values {
		if _, ok := schema.index[name]; !ok {
			corrupt.Unexpected = append(corrupt.Unexpected, name)
		}
	}
	slices.Sort(corrupt.Unexpected)

	if len(corrupt.Missing) > 0 || len(corrupt.NonFinite) > 0 || len(corrupt.Unexpected) > 0 {
		return nil, corrupt
	}
	return &Vector{schema: schema, values: row}, nil
}

// NewVector wraps a row that is already in schema order
func NewVector(schema *Schema, row []float64) (*Vector, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	if len(row) != len(schema.names) {
		return nil, &FeatureCorruptError{
			Schema: schema.version,
			Reason: fmt.Sprintf("expected %d columns, got %d", len(schema.names), len(row)),
		}
	}

	corrupt := &FeatureCorruptError{Schema: schema.version}
	for i, v := range row {
		if !common.IsFinite(v) {
			corrupt.NonFinite = append(corrupt.NonFinite, schema.names[i])
		}
	}
	if len(corrupt.NonFinite) > 0 {
		return nil, corrupt
	}
	return &Vector{schema: schema, values: slices.Clone(row)}, nil
}

// Schema returns the schema the vector was assembled against
func (v *Vector) Schema() *Schema {
	return v.schema
}

// Len returns the number of columns
func (v *Vector) Len() int {
	return len(v.values)
}

// Values returns a copy of the row in schema order
func (v *Vector) Values() []float64 {
	return slices.Clone(v.values)
}

// Get returns the value of a named column
func (v *Vector) Get(name string) (float64, bool) {
	i, ok := v.schema.Index(name)
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Map returns the values keyed by column name
func (v *Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for i, name := range v.schema.names {
		out[name] = v.values[i]
	}
	return out
}

// MarshalJSON writes the columns as an object in schema order
func (v *Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range v.schema.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
