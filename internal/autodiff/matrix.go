package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major matrix of Vars.
type Matrix struct {
	Rows, Cols int
	Data       []Var
}

// NewMatrix wraps data as a rows×cols matrix. It panics if the sizes disagree.
func NewMatrix(rows, cols int, data []Var) Matrix {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		panic(fmt.Sprintf("autodiff: matrix %dx%d needs %d elements, got %d", rows, cols, rows*cols, len(data)))
	}
	return Matrix{Rows: rows, Cols: cols, Data: data}
}

// NewMatrixVar records a matrix of independent variables from row-major values.
func (t *Tape) NewMatrixVar(rows, cols int, vals []float64) Matrix {
	if len(vals) != rows*cols {
		panic(fmt.Sprintf("autodiff: matrix %dx%d needs %d values, got %d", rows, cols, rows*cols, len(vals)))
	}
	return NewMatrix(rows, cols, t.NewVars(vals))
}

// At returns element (i, j).
func (m Matrix) At(i, j int) Var {
	return m.Data[i*m.Cols+j]
}

// IsSquare reports whether m has as many rows as columns.
func (m Matrix) IsSquare() bool {
	return m.Rows == m.Cols
}

// Vals copies the values of m into a gonum matrix. It returns an empty Dense
// for a matrix with no elements.
func (m Matrix) Vals() *mat.Dense {
	if m.Rows == 0 || m.Cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.Rows, m.Cols, Vals(m.Data))
}

// Adjs copies the adjoints of m into a gonum matrix.
func (m Matrix) Adjs() *mat.Dense {
	if m.Rows == 0 || m.Cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.Rows, m.Cols, Adjs(m.Data))
}
