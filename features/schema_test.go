package features

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaV1Layout(t *testing.T) {
	names := SchemaV1.Names()
	require.Len(t, names, 34)
	assert.Equal(t, "v1", SchemaV1.Version())
	assert.Equal(t, []string{Pitch, Jitter, Shimmer, HNR}, names[:4])
	assert.Equal(t, "mfcc_1", names[4])
	assert.Equal(t, "mfcc_13", names[16])
	assert.Equal(t, SpectralCentroidMean, names[17])
	assert.Equal(t, ZeroCrossingRateStd, names[24])
	assert.Equal(t, StatKurtosis, names[33])

	i, ok := SchemaV1.Index(HNR)
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	_, ok = SchemaV1.Index("mfcc_14")
	assert.False(t, ok)

	// Names hands out a copy
	names[0] = "changed"
	assert.Equal(t, Pitch, SchemaV1.Names()[0])
}

func TestNewSchemaRejectsBadNames(t *testing.T) {
	_, err := NewSchema("", "a")
	assert.Error(t, err)
	_, err = NewSchema("v2")
	assert.Error(t, err)
	_, err = NewSchema("v2", "a", "")
	assert.Error(t, err)
	_, err = NewSchema("v2", "a", "b", "a")
	assert.ErrorContains(t, err, "duplicate")
}

func TestSchemaCheck(t *testing.T) {
	require.NoError(t, SchemaV1.Check(SchemaV1.Names()))

	swapped := SchemaV1.Names()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	err := SchemaV1.Check(swapped)
	assert.ErrorIs(t, err, ErrFeatureCorrupt)
	assert.ErrorContains(t, err, "order")

	renamed := SchemaV1.Names()
	renamed[3] = "harmonicity"
	err = SchemaV1.Check(renamed)
	var corrupt *FeatureCorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, []string{HNR}, corrupt.Missing)
	assert.Equal(t, []string{"harmonicity"}, corrupt.Unexpected)

	err = SchemaV1.Check(SchemaV1.Names()[:30])
	require.ErrorAs(t, err, &corrupt)
	assert.Len(t, corrupt.Missing, 4)
}

func fullRow() map[string]float64 {
	values := make(map[string]float64)
	for i, name := range SchemaV1.Names() {
		values[name] = float64(i) + 0.5
	}
	return values
}

func TestAssembleOrdersBySchema(t *testing.T) {
	v, err := Assemble(SchemaV1, fullRow())
	require.NoError(t, err)

	require.Equal(t, 34, v.Len())
	for i, got := range v.Values() {
		assert.Equal(t, float64(i)+0.5, got)
	}
	got, ok := v.Get(StatMedian)
	assert.True(t, ok)
	assert.Equal(t, 28.5, got)
	assert.Same(t, SchemaV1, v.Schema())
}

func TestAssembleRejectsCorruptColumns(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]float64)
		check  func(t *testing.T, e *FeatureCorruptError)
	}{
		{
			name:   "nan",
			mutate: func(m map[string]float64) { m[Jitter] = math.NaN() },
			check: func(t *testing.T, e *FeatureCorruptError) {
				assert.Equal(t, []string{Jitter}, e.NonFinite)
			},
		},
		{
			name: "infinities",
			mutate: func(m map[string]float64) {
				m[HNR] = math.Inf(1)
				m["mfcc_2"] = math.Inf(-1)
			},
			check: func(t *testing.T, e *FeatureCorruptError) {
				assert.Equal(t, []string{HNR, "mfcc_2"}, e.NonFinite)
			},
		},
		{
			name:   "missing",
			mutate: func(m map[string]float64) { delete(m, StatSkewness) },
			check: func(t *testing.T, e *FeatureCorruptError) {
				assert.Equal(t, []string{StatSkewness}, e.Missing)
			},
		},
		{
			name:   "unexpected",
			mutate: func(m map[string]float64) { m["mfcc_14"] = 1 },
			check: func(t *testing.T, e *FeatureCorruptError) {
				assert.Equal(t, []string{"mfcc_14"}, e.Unexpected)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := fullRow()
			tt.mutate(row)

			v, err := Assemble(SchemaV1, row)
			assert.Nil(t, v)
			assert.ErrorIs(t, err, ErrFeatureCorrupt)

			var corrupt *FeatureCorruptError
			require.ErrorAs(t, err, &corrupt)
			assert.Equal(t, "v1", corrupt.Schema)
			tt.check(t, corrupt)
			for _, col := range corrupt.Columns() {
				assert.Contains(t, err.Error(), col)
			}
		})
	}
}

func TestNewVector(t *testing.T) {
	row := make([]float64, 34)
	v, err := NewVector(SchemaV1, row)
	require.NoError(t, err)

	// The vector keeps its own copy
	row[0] = 99
	got, _ := v.Get(Pitch)
	assert.Zero(t, got)

	_, err = NewVector(SchemaV1, make([]float64, 33))
	assert.ErrorIs(t, err, ErrFeatureCorrupt)

	row[5] = math.NaN()
	_, err = NewVector(SchemaV1, row)
	var corrupt *FeatureCorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, []string{"mfcc_2"}, corrupt.NonFinite)
}

func TestVectorMarshalJSONKeepsSchemaOrder(t *testing.T) {
	v, err := Assemble(SchemaV1, fullRow())
	require.NoError(t, err)

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var keys []string
	d := json.NewDecoder(bytes.NewReader(b))
	_, err = d.Token()
	require.NoError(t, err)
	for d.More() {
		tok, err := d.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		_, err = d.Token()
		require.NoError(t, err)
	}
	assert.Equal(t, SchemaV1.Names(), keys)

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, v.Map(), decoded)
}
