package ops_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/autodiff/ops"
)

// checkGradient compares the reverse-mode gradient of f with central finite
// differences.
func checkGradient(t *testing.T, f autodiff.Func, x []float64) {
	t.Helper()
	tape := autodiff.NewTape()
	_, grad, err := tape.Gradient(f, x)
	require.NoError(t, err)

	want := fd.Gradient(nil, func(xx []float64) float64 {
		y, err := f(tape, autodiff.Constants(xx))
		require.NoError(t, err)
		return y.Val()
	}, x, &fd.Settings{Formula: fd.Central})
	assert.InDeltaSlice(t, want, grad, 1e-7)
}

func TestSum(t *testing.T) {
	tape := autodiff.NewTape()
	xs := []autodiff.Var{tape.NewVar(1), autodiff.Constant(2), tape.NewVar(3)}
	s := ops.Sum(tape, xs)

	assert.Equal(t, 6.0, s.Val())
	assert.Equal(t, 3, tape.NumOps(), "one node for the whole reduction")
	tape.Backward(s)
	assert.Equal(t, []float64{1, 0, 1}, autodiff.Adjs(xs))

	c := ops.Sum(tape, autodiff.Constants([]float64{1, 2}))
	assert.True(t, c.IsConstant())
	assert.Equal(t, 0.0, ops.Sum(tape, nil).Val())
}

func TestDot(t *testing.T) {
	checkGradient(t, func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return ops.Dot(t, x[:3], x[3:]), nil
	}, []float64{1, -2, 0.5, 3, 4, -1})

	tape := autodiff.NewTape()
	a := tape.NewVars([]float64{1, 2})
	d := ops.Dot(tape, a, autodiff.Constants([]float64{5, 7}))
	assert.Equal(t, 19.0, d.Val())
	tape.Backward(d)
	assert.Equal(t, []float64{5, 7}, autodiff.Adjs(a))

	assert.Panics(t, func() { ops.Dot(tape, a, nil) })
}

func TestDot_SharedOperand(t *testing.T) {
	tape := autodiff.NewTape()
	x := tape.NewVars([]float64{2, 3})
	d := ops.Dot(tape, x, x)
	tape.Backward(d)
	assert.Equal(t, []float64{4, 6}, autodiff.Adjs(x))
}

func TestDotSelf(t *testing.T) {
	checkGradient(t, func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return ops.DotSelf(t, x), nil
	}, []float64{1, -2, 0.5})
}

func TestLogSumExp(t *testing.T) {
	checkGradient(t, func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return ops.LogSumExp(t, x), nil
	}, []float64{1, -2, 0.5, 3})

	tape := autodiff.NewTape()
	big := tape.NewVars([]float64{1000, 1000})
	lse := ops.LogSumExp(tape, big)
	assert.InDelta(t, 1000+math.Ln2, lse.Val(), 1e-12)
	tape.Backward(lse)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, autodiff.Adjs(big), 1e-15)

	assert.True(t, math.IsInf(ops.LogSumExp(tape, nil).Val(), -1))
	inf := ops.LogSumExp(tape, tape.NewVars([]float64{math.Inf(-1), math.Inf(-1)}))
	assert.True(t, math.IsInf(inf.Val(), -1))
}

// TestScale_Broadcast tests a size-1 operand combined with a size-3 one: the
// scalar accumulates every position while each element keeps its own partial.
func TestScale_Broadcast(t *testing.T) {
	tape := autodiff.NewTape()
	c := tape.NewVar(2)
	xs := tape.NewVars([]float64{1, 4, -3})

	ys := ops.Scale(tape, c, xs)
	require.Len(t, ys, 3)
	assert.Equal(t, []float64{2, 8, -6}, autodiff.Vals(ys))

	// L = 1·y₀ + 10·y₁ + 100·y₂
	l := ops.Dot(tape, ys, autodiff.Constants([]float64{1, 10, 100}))
	tape.Backward(l)

	assert.Equal(t, 1*1.0+10*4.0+100*-3.0, c.Adj())
	assert.Equal(t, []float64{2, 20, 200}, autodiff.Adjs(xs))
}

func TestScale_Constant(t *testing.T) {
	tape := autodiff.NewTape()
	ys := ops.Scale(tape, autodiff.Constant(3), autodiff.Constants([]float64{1, 2}))
	assert.Equal(t, []float64{3, 6}, autodiff.Vals(ys))
	assert.Zero(t, tape.NumVaris())

	x := tape.NewVar(5)
	ys = ops.Scale(tape, autodiff.Constant(3), []autodiff.Var{x})
	tape.Backward(ys[0])
	assert.Equal(t, 3.0, x.Adj())
}

func TestSoftmax(t *testing.T) {
	x := []float64{0.5, -1, 2, 0}
	tape := autodiff.NewTape()
	fx, jac, err := tape.Jacobian(func(t *autodiff.Tape, x []autodiff.Var) ([]autodiff.Var, error) {
		return ops.Softmax(t, x), nil
	}, x)
	require.NoError(t, err)

	var sum float64
	for _, s := range fx {
		sum += s
	}
	assert.InDelta(t, 1, sum, 1e-15)

	want := mat.NewDense(4, 4, nil)
	fd.Jacobian(want, func(y, xx []float64) {
		copy(y, autodiff.Vals(ops.Softmax(tape, autodiff.Constants(xx))))
	}, x, &fd.JacobianSettings{Formula: fd.Central})
	assert.True(t, mat.EqualApprox(want, jac, 1e-8), "jacobian:\n%v", mat.Formatted(jac))
}

func TestSoftmax_Stable(t *testing.T) {
	tape := autodiff.NewTape()
	s := ops.Softmax(tape, autodiff.Constants([]float64{1000, 1000}))
	assert.Equal(t, []float64{0.5, 0.5}, autodiff.Vals(s))
	assert.Nil(t, ops.Softmax(tape, nil))
	assert.Zero(t, tape.NumVaris())
}
