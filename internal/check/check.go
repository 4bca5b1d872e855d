// Package check validates the arguments of differentiable primitives.
//
// Checks return a *DomainError when a value lies outside the support of a
// function and a *SizeError when container arguments disagree in length.
// Both are wrapped with a stack trace (github.com/pkg/errors) and can be
// recovered with errors.As.
package check

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Values is a read-only view of a scalar or vector argument.
type Values interface {
	Len() int
	Val(i int) float64
	IsVector() bool
}

// DomainError reports an argument value outside the domain of a function.
type DomainError struct {
	Function string
	Name     string
	Index    int // 0-based element index, -1 for scalars
	Value    float64
	Msg      string // e.g. "must be positive"
}

func (e *DomainError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s is %v, but %s", e.Function, e.Name, e.Value, e.Msg)
	}
	return fmt.Sprintf("%s: %s[%d] is %v, but %s", e.Function, e.Name, e.Index+1, e.Value, e.Msg)
}

// SizeError reports container arguments of inconsistent length.
type SizeError struct {
	Function string
	Name     string
	Size     int
	Expected string
	Want     int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: size of %s (%d) and size of %s (%d) must match in size",
		e.Function, e.Name, e.Size, e.Expected, e.Want)
}

// Arg names a vector or scalar argument for ConsistentSizes.
type Arg struct {
	Name   string
	Values Values
}

// Named returns an Arg.
func Named(name string, v Values) Arg {
	return Arg{Name: name, Values: v}
}

// each applies ok to every element and reports the first failure.
func each(function, name string, y Values, msg string, ok func(float64) bool) error {
	for i := 0; i < y.Len(); i++ {
		v := y.Val(i)
		if ok(v) {
			continue
		}
		idx := -1
		if y.IsVector() {
			idx = i
		}
		return errors.WithStack(&DomainError{Function: function, Name: name, Index: idx, Value: v, Msg: msg})
	}
	return nil
}

// NotNaN fails if any element is NaN.
func NotNaN(function, name string, y Values) error {
	return each(function, name, y, "must not be nan", func(v float64) bool { return !math.IsNaN(v) })
}

// Finite fails if any element is NaN or infinite.
func Finite(function, name string, y Values) error {
	return each(function, name, y, "must be finite", func(v float64) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}

// Positive fails if any element is not > 0 (NaN included).
func Positive(function, name string, y Values) error {
	return each(function, name, y, "must be positive", func(v float64) bool { return v > 0 })
}

// PositiveFinite fails if any element is not in (0, +Inf).
func PositiveFinite(function, name string, y Values) error {
	return each(function, name, y, "must be positive finite", func(v float64) bool {
		return v > 0 && !math.IsInf(v, 1)
	})
}

// Bounded fails if any element lies outside [low, high] (NaN included).
func Bounded(function, name string, y Values, low, high float64) error {
	msg := fmt.Sprintf("must be in the interval [%v, %v]", low, high)
	return each(function, name, y, msg, func(v float64) bool { return low <= v && v <= high })
}

// ConsistentSizes fails if two vector arguments differ in length. Scalars and
// vectors of length 1 broadcast, so they are compatible with any size.
func ConsistentSizes(function string, args ...Arg) error {
	first := -1
	for i, a := range args {
		if !a.Values.IsVector() || a.Values.Len() == 1 {
			continue
		}
		if first < 0 {
			first = i
			continue
		}
		want := args[first].Values.Len()
		if a.Values.Len() != want {
			return errors.WithStack(&SizeError{
				Function: function,
				Name:     a.Name,
				Size:     a.Values.Len(),
				Expected: args[first].Name,
				Want:     want,
			})
		}
	}
	return nil
}

// Square fails unless rows == cols.
func Square(function, name string, rows, cols int) error {
	if rows != cols {
		return errors.Errorf("%s: expecting a square matrix; rows of %s (%d) and columns of %s (%d) must match in size",
			function, name, rows, name, cols)
	}
	return nil
}

// Symmetric fails unless |a(i,j) - a(j,i)| <= tol·max(1, |a(i,j)|) for all i, j.
func Symmetric(function, name string, n int, at func(i, j int) float64, tol float64) error {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := at(i, j), at(j, i)
			if math.Abs(a-b) > tol*math.Max(1, math.Abs(a)) {
				return errors.WithStack(&DomainError{
					Function: function,
					Name:     fmt.Sprintf("%s[%d,%d]", name, i+1, j+1),
					Index:    -1,
					Value:    a,
					Msg:      fmt.Sprintf("must be symmetric (transposed element is %v)", b),
				})
			}
		}
	}
	return nil
}
