// Package dg applies discontinuous Galerkin operators elementwise over a
// discretization and evaluates compiled symbolic operator expressions. The
// geometry, bases and connectivity come from a Provider (see package
// boxgrid for the structured-box implementation).
package dg

import (
	"github.com/pkg/errors"

	"github.com/notargets/godg/dof"
	"github.com/notargets/godg/utils"
)

// Field is a value an operator can act on: a bare scalar, per-element-group
// nodal data, or an ordered collection of either (a vector-valued field).
type Field interface {
	isField()
}

type Scalar float64

func (Scalar) isField() {}

// DOFArray holds the degrees of freedom of one scalar field on one
// discretization: a Np x K matrix per element group.
type DOFArray struct {
	DD   dof.DofDesc
	Data []utils.Matrix
}

func (*DOFArray) isField() {}

func (d *DOFArray) Copy() *DOFArray {
	data := make([]utils.Matrix, len(d.Data))
	for i, m := range d.Data {
		data[i] = m.Copy()
	}
	return &DOFArray{DD: d.DD, Data: data}
}

// FieldArray is a component-wise collection (e.g. the gradient of a scalar
// field, or the conserved variables of a system).
type FieldArray []Field

func (FieldArray) isField() {}

// mapUnary applies fn to every DOFArray inside f, recursing through arrays
// and passing scalars through untouched.
func mapUnary(f Field, fn func(*DOFArray) *DOFArray) Field {
	switch v := f.(type) {
	case Scalar:
		return v
	case *DOFArray:
		return fn(v)
	case FieldArray:
		out := make(FieldArray, len(v))
		for i, c := range v {
			out[i] = mapUnary(c, fn)
		}
		return out
	}
	panic(errors.Errorf("unknown field type %T", f))
}

// mapBinary combines two fields elementwise. Scalars broadcast against
// arrays; two arrays must agree in shape.
func mapBinary(a, b Field, scalar func(x, y float64) float64,
	dofScalar func(d *DOFArray, s float64, scalarOnLeft bool) *DOFArray,
	dofDof func(x, y *DOFArray) *DOFArray) Field {

	switch av := a.(type) {
	case Scalar:
		switch bv := b.(type) {
		case Scalar:
			return Scalar(scalar(float64(av), float64(bv)))
		case *DOFArray:
			return dofScalar(bv, float64(av), true)
		case FieldArray:
			out := make(FieldArray, len(bv))
			for i, c := range bv {
				out[i] = mapBinary(a, c, scalar, dofScalar, dofDof)
			}
			return out
		}
	case *DOFArray:
		switch bv := b.(type) {
		case Scalar:
			return dofScalar(av, float64(bv), false)
		case *DOFArray:
			return dofDof(av, bv)
		}
	case FieldArray:
		if bv, ok := b.(FieldArray); ok {
			if len(av) != len(bv) {
				panic(errors.Errorf(
					"field component count mismatch: %d vs %d", len(av), len(bv)))
			}
			out := make(FieldArray, len(av))
			for i := range av {
				out[i] = mapBinary(av[i], bv[i], scalar, dofScalar, dofDof)
			}
			return out
		}
		if _, ok := b.(Scalar); ok {
			out := make(FieldArray, len(av))
			for i, c := range av {
				out[i] = mapBinary(c, b, scalar, dofScalar, dofDof)
			}
			return out
		}
	}
	panic(errors.Errorf("incompatible field operands %T and %T", a, b))
}

func applyElementwise(d *DOFArray, fn func(float64) float64) *DOFArray {
	out := d.Copy()
	for _, m := range out.Data {
		m.Apply(fn)
	}
	return out
}

func combineElementwise(x, y *DOFArray, fn func(a, b float64) float64) *DOFArray {
	if len(x.Data) != len(y.Data) {
		panic(errors.Errorf("group count mismatch: %d vs %d", len(x.Data), len(y.Data)))
	}
	out := x.Copy()
	for g, m := range out.Data {
		yd := y.Data[g].DataP
		for i := range m.DataP {
			m.DataP[i] = fn(m.DataP[i], yd[i])
		}
	}
	return out
}

// Add, Mul, Sub and Div are the broadcasting field arithmetic used by the
// expression evaluator and by flux drivers.

func Add(a, b Field) Field {
	return mapBinary(a, b,
		func(x, y float64) float64 { return x + y },
		func(d *DOFArray, s float64, _ bool) *DOFArray {
			return applyElementwise(d, func(v float64) float64 { return v + s })
		},
		func(x, y *DOFArray) *DOFArray {
			return combineElementwise(x, y, func(a, b float64) float64 { return a + b })
		})
}

func Mul(a, b Field) Field {
	return mapBinary(a, b,
		func(x, y float64) float64 { return x * y },
		func(d *DOFArray, s float64, _ bool) *DOFArray {
			return applyElementwise(d, func(v float64) float64 { return v * s })
		},
		func(x, y *DOFArray) *DOFArray {
			return combineElementwise(x, y, func(a, b float64) float64 { return a * b })
		})
}

func Sub(a, b Field) Field { return Add(a, Mul(Scalar(-1), b)) }

func Div(a, b Field) Field {
	return mapBinary(a, b,
		func(x, y float64) float64 { return x / y },
		func(d *DOFArray, s float64, scalarOnLeft bool) *DOFArray {
			if scalarOnLeft {
				return applyElementwise(d, func(v float64) float64 { return s / v })
			}
			return applyElementwise(d, func(v float64) float64 { return v / s })
		},
		func(x, y *DOFArray) *DOFArray {
			return combineElementwise(x, y, func(a, b float64) float64 { return a / b })
		})
}
