package partials

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/adjoint/internal/autodiff"
)

// squaredDiff is Σ (aᵢ - bᵢ)² written against the accumulator, the way a
// catalog primitive would.
func squaredDiff[A, B Operand](t *autodiff.Tape, a A, b B) autodiff.Var {
	ea, eb := Of(a), Of(b)
	op := New(t, ea, eb)
	var val float64
	for i := 0; i < MaxSize(ea, eb); i++ {
		d := ea.Val(i) - eb.Val(i)
		val += d * d
		op.Edge(0).Partials.Add(i, 2*d)
		op.Edge(1).Partials.Add(i, -2*d)
	}
	return op.Build(val)
}

func TestOf(t *testing.T) {
	tape := autodiff.NewTape()
	tests := []struct {
		name     string
		edge     Edge
		n        int
		vector   bool
		constant bool
		val1     float64
	}{
		{"float64", Of(2.5), 1, false, true, 2.5},
		{"[]float64", Of([]float64{1, 2}), 2, true, true, 2},
		{"constant Var", Of(autodiff.Constant(4)), 1, false, true, 4},
		{"Var", Of(tape.NewVar(3)), 1, false, false, 3},
		{"[]Var", Of(tape.NewVars([]float64{5, 6, 7})), 3, true, false, 6},
		{"[]Var of constants", Of(autodiff.Constants([]float64{8, 9})), 2, true, true, 9},
		{"size-1 broadcast", Of([]float64{7}), 1, true, true, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.n, tt.edge.Len())
			assert.Equal(t, tt.vector, tt.edge.IsVector())
			assert.Equal(t, tt.constant, tt.edge.IsConstant())
			assert.Equal(t, tt.val1, tt.edge.Val(1))
		})
	}
}

func TestBroadcast_Add(t *testing.T) {
	var none Broadcast
	none.Add(3, 1) // no-op

	one := Broadcast{0}
	for i := 0; i < 3; i++ {
		one.Add(i, float64(i+1))
	}
	assert.Equal(t, Broadcast{6}, one)

	many := Broadcast{0, 0, 0}
	many.Add(1, 2)
	many.Add(1, 3)
	assert.Equal(t, Broadcast{0, 5, 0}, many, "accumulates, never overwrites")
}

func TestMaxSize_SizeZero(t *testing.T) {
	assert.Equal(t, 3, MaxSize(Of(1.0), Of([]float64{1, 2, 3}), Of([]float64{1})))
	assert.False(t, SizeZero(Of(1.0), Of([]float64{1})))
	assert.True(t, SizeZero(Of(1.0), Of([]float64{})))
}

// TestBuild_AllConstant tests that constant operands never touch the arena
// and produce the directly computed value.
func TestBuild_AllConstant(t *testing.T) {
	tape := autodiff.NewTape()
	a := []float64{0.1, 0.2, 0.3}
	b := 0.7

	got := squaredDiff(tape, a, b)
	var want float64
	for _, x := range a {
		d := x - b
		want += d * d
	}
	assert.True(t, got.IsConstant())
	assert.Equal(t, want, got.Val())
	assert.Zero(t, tape.NumOps())
	assert.Zero(t, tape.Arena().Stats().Used)

	// No tape needed at all.
	assert.Equal(t, want, squaredDiff(nil, a, autodiff.Constant(b)).Val())
}

func TestBuild_OneNode(t *testing.T) {
	tape := autodiff.NewTape()
	a := tape.NewVars([]float64{1, 2})
	b := tape.NewVar(4)
	before := tape.NumOps()

	s := squaredDiff(tape, a, b)
	assert.Equal(t, before+1, tape.NumOps())
	assert.Equal(t, 9.0+4.0, s.Val())

	tape.Backward(s)
	assert.Equal(t, []float64{-6, -4}, autodiff.Adjs(a))
	assert.Equal(t, 10.0, b.Adj())
}

// TestBuild_Broadcast tests a size-1 differentiable operand against a size-3
// one: the single element receives the sum of the three partials.
func TestBuild_Broadcast(t *testing.T) {
	tape := autodiff.NewTape()
	a := tape.NewVars([]float64{1, 2, 3})
	b := tape.NewVars([]float64{5})

	s := squaredDiff(tape, a, b)
	assert.Equal(t, 16.0+9.0+4.0, s.Val())
	tape.Backward(s)

	assert.Equal(t, []float64{-8, -6, -4}, autodiff.Adjs(a))
	assert.Equal(t, 8.0+6.0+4.0, b[0].Adj())
}

// TestBuild_MixedVector tests a vector mixing constants and Vars: only the
// Vars become operands.
func TestBuild_MixedVector(t *testing.T) {
	tape := autodiff.NewTape()
	x := tape.NewVar(3)
	a := []autodiff.Var{autodiff.Constant(1), x}

	s := squaredDiff(tape, a, 0.0)
	node := tape.At(tape.NumOps() - 1)
	assert.Equal(t, s.Vari(), node)

	tape.Backward(s)
	assert.Equal(t, 6.0, x.Adj())
}

func TestNew_NeedsTape(t *testing.T) {
	x := autodiff.NewTape().NewVar(1)
	assert.Panics(t, func() { New(nil, Of(x)) })
}

func TestBuild_PartialsLengthMismatch(t *testing.T) {
	tape := autodiff.NewTape()
	op := New(tape, Of(tape.NewVars([]float64{1, 2})))
	op.Edge(0).Partials = Broadcast{1}
	assert.Panics(t, func() { op.Build(0) })
}

func TestNumEdges(t *testing.T) {
	tape := autodiff.NewTape()
	op := New(tape, Of(1.0), Of(tape.NewVar(2)), Of([]float64{3}), Of(autodiff.Constant(math.Pi)))
	require.Equal(t, 4, op.NumEdges())
	assert.Nil(t, op.Edge(0).Partials)
	assert.Len(t, op.Edge(1).Partials, 1)
	assert.Nil(t, op.Edge(3).Partials)
}
