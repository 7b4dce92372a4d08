package distribution

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestNewFloat_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		low, high float64
		log       bool
		step      *float64
	}{
		{"low above high", 2, 1, false, nil},
		{"log with step", 1, 2, true, ptr(0.1)},
		{"log with zero low", 0, 2, true, nil},
		{"negative step", 0, 1, false, ptr(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFloat(tc.low, tc.high, tc.log, tc.step)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestNewInt_DefaultStep(t *testing.T) {
	d, err := NewInt(0, 10, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Step)
}

func TestNewInt_LogNeedsPositiveLow(t *testing.T) {
	_, err := NewInt(0, 10, true, 1)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestFloat_RoundTrip(t *testing.T) {
	d, err := NewFloat(-5, 5, false, nil)
	require.NoError(t, err)
	for _, v := range []float64{-5, -1.25, 0, 3.14159, 5} {
		ext, err := d.ToExternalRepr(v)
		require.NoError(t, err)
		got, err := d.ToInternalRepr(ext)
		require.NoError(t, err)
		assert.InDelta(t, v, got, 1e-12)
	}
}

func TestInt_RoundTrip(t *testing.T) {
	d, err := NewInt(1, 100, true, 1)
	require.NoError(t, err)
	ext, err := d.ToExternalRepr(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ext)
	got, err := d.ToInternalRepr(ext)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}

func TestCategorical_RoundTrip(t *testing.T) {
	d, err := NewCategorical([]any{"adam", "sgd", int64(3), nil})
	require.NoError(t, err)
	for i := range d.Choices {
		ext, err := d.ToExternalRepr(float64(i))
		require.NoError(t, err)
		got, err := d.ToInternalRepr(ext)
		require.NoError(t, err)
		assert.Equal(t, float64(i), got)
	}
}

func TestCategorical_OutOfRange(t *testing.T) {
	d, err := NewCategorical([]any{"a", "b"})
	require.NoError(t, err)
	_, err = d.ToExternalRepr(2)
	require.ErrorIs(t, err, ErrInvalid)
	_, err = d.ToExternalRepr(0.5)
	require.ErrorIs(t, err, ErrInvalid)
	_, err = d.ToInternalRepr("c")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestCategorical_NumericChoicesMatchAcrossTypes(t *testing.T) {
	d, err := NewCategorical([]any{int64(1), int64(2)})
	require.NoError(t, err)
	got, err := d.ToInternalRepr(2.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestContains(t *testing.T) {
	f, _ := NewFloat(0, 1, false, ptr(0.25))
	assert.True(t, f.Contains(0.75))
	assert.False(t, f.Contains(0.8))
	assert.False(t, f.Contains(math.NaN()))

	i, _ := NewInt(0, 10, false, 2)
	assert.True(t, i.Contains(4))
	assert.False(t, i.Contains(5))
	assert.False(t, i.Contains(12))

	c, _ := NewCategorical([]any{"x"})
	assert.True(t, c.Contains(0))
	assert.False(t, c.Contains(1))
}

func TestCheckCompatibility(t *testing.T) {
	f1, _ := NewFloat(0, 1, false, nil)
	f2, _ := NewFloat(1, 100, true, nil)
	i1, _ := NewInt(0, 10, false, 1)
	c1, _ := NewCategorical([]any{"a", "b"})
	c2, _ := NewCategorical([]any{"a", "b"})
	c3, _ := NewCategorical([]any{"a", "c"})
	c4, _ := NewCategorical([]any{"a"})

	assert.NoError(t, CheckCompatibility(f1, f2), "float ranges may differ")
	assert.NoError(t, CheckCompatibility(c1, c2))
	assert.True(t, errors.Is(CheckCompatibility(f1, i1), ErrIncompatible))
	assert.True(t, errors.Is(CheckCompatibility(c1, c3), ErrIncompatible))
	assert.True(t, errors.Is(CheckCompatibility(c1, c4), ErrIncompatible))
	assert.True(t, errors.Is(CheckCompatibility(i1, c1), ErrIncompatible))
}

func TestMarshal_RoundTrip(t *testing.T) {
	f, _ := NewFloat(0.001, 1, true, nil)
	i, _ := NewInt(2, 64, false, 2)
	c, _ := NewCategorical([]any{"relu", "tanh", 0.5, true})
	for _, d := range []Distribution{f, i, c} {
		data, err := Marshal(d)
		require.NoError(t, err)
		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, d, got, "decoded %s", data)
		assert.NoError(t, CheckCompatibility(d, got))
	}
}

func TestSpec_Build(t *testing.T) {
	_, err := Spec{Type: KindInt, Low: ptr(0.5), High: ptr(3)}.Build()
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Spec{Type: "gaussian"}.Build()
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Spec{Type: KindFloat, Low: ptr(0)}.Build()
	require.ErrorIs(t, err, ErrInvalid)

	d, err := Spec{Type: KindCategorical, Choices: []any{1, "two"}}.Build()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "two"}, d.(*Categorical).Choices)
}
