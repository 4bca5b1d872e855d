package check

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scalar float64

func (s scalar) Len() int        { return 1 }
func (s scalar) Val(int) float64 { return float64(s) }
func (s scalar) IsVector() bool  { return false }

type vector []float64

func (v vector) Len() int          { return len(v) }
func (v vector) Val(i int) float64 { return v[i] }
func (v vector) IsVector() bool    { return true }

func TestChecks(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		name  string
		check func(Values) error
		ok    []Values
		bad   []Values
	}{
		{
			name:  "NotNaN",
			check: func(v Values) error { return NotNaN("f", "x", v) },
			ok:    []Values{scalar(inf), vector{1, -inf}},
			bad:   []Values{scalar(nan), vector{0, nan}},
		},
		{
			name:  "Finite",
			check: func(v Values) error { return Finite("f", "x", v) },
			ok:    []Values{scalar(-3), vector{}},
			bad:   []Values{scalar(inf), vector{1, nan}},
		},
		{
			name:  "Positive",
			check: func(v Values) error { return Positive("f", "x", v) },
			ok:    []Values{scalar(1e-300), scalar(inf)},
			bad:   []Values{scalar(0), scalar(nan), vector{1, -1}},
		},
		{
			name:  "PositiveFinite",
			check: func(v Values) error { return PositiveFinite("f", "x", v) },
			ok:    []Values{scalar(2)},
			bad:   []Values{scalar(inf), scalar(0)},
		},
		{
			name:  "Bounded",
			check: func(v Values) error { return Bounded("f", "x", v, 0, 1) },
			ok:    []Values{vector{0, 1, 0.5}},
			bad:   []Values{scalar(1.5), vector{0, nan}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.ok {
				assert.NoError(t, tt.check(v))
			}
			for _, v := range tt.bad {
				err := tt.check(v)
				var domain *DomainError
				require.True(t, errors.As(err, &domain), "value %v", v)
				assert.Equal(t, "f", domain.Function)
			}
		})
	}
}

func TestDomainError_Message(t *testing.T) {
	err := Positive("normal_lpdf", "Scale parameter", scalar(-2))
	assert.Equal(t, "normal_lpdf: Scale parameter is -2, but must be positive", err.Error())

	err = Positive("normal_lpdf", "Scale parameter", vector{1, 2, 0})
	assert.Equal(t, "normal_lpdf: Scale parameter[3] is 0, but must be positive", err.Error())
}

func TestConsistentSizes(t *testing.T) {
	assert.NoError(t, ConsistentSizes("f",
		Named("a", vector{1, 2, 3}),
		Named("b", scalar(1)),
		Named("c", vector{4, 5, 6})))
	assert.NoError(t, ConsistentSizes("f",
		Named("a", vector{1}),
		Named("b", vector{4, 5, 6})))

	err := ConsistentSizes("f",
		Named("a", scalar(0)),
		Named("b", vector{1, 2}),
		Named("c", vector{1, 2, 3}))
	var size *SizeError
	require.True(t, errors.As(err, &size))
	assert.Equal(t, SizeError{Function: "f", Name: "c", Size: 3, Expected: "b", Want: 2}, *size)
	assert.Equal(t, "f: size of c (3) and size of b (2) must match in size", size.Error())
}

func TestSquare(t *testing.T) {
	assert.NoError(t, Square("f", "A", 2, 2))
	assert.Error(t, Square("f", "A", 2, 3))
}

func TestSymmetric(t *testing.T) {
	m := [][]float64{
		{1, 2},
		{2 + 1e-12, 1},
	}
	at := func(i, j int) float64 { return m[i][j] }
	assert.NoError(t, Symmetric("f", "A", 2, at, 1e-8))

	m[1][0] = 3
	err := Symmetric("f", "A", 2, at, 1e-8)
	var domain *DomainError
	require.True(t, errors.As(err, &domain))
	assert.Equal(t, "A[1,2]", domain.Name)
}
