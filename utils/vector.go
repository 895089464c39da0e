package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) (V Vector) {
	var data []float64
	if len(dataO) != 0 {
		data = dataO[0]
		if len(data) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v", n, len(data))
			panic(err)
		}
	} else {
		data = make([]float64, n)
	}
	V = Vector{mat.NewVecDense(n, data)}
	return
}

func ConstVector(n int, val float64) (V Vector) {
	d := make([]float64, n)
	for i := range d {
		d[i] = val
	}
	return NewVector(n, d)
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return v.V.Len() }
func (v Vector) DataP() []float64         { return v.V.RawVector().Data }

// Chainable (extended) methods
func (v Vector) Copy() Vector {
	d := make([]float64, v.Len())
	copy(d, v.DataP())
	return NewVector(v.Len(), d)
}

func (v Vector) Scale(a float64) Vector {
	data := v.DataP()
	for i := range data {
		data[i] *= a
	}
	return v
}

func (v Vector) AddScalar(a float64) Vector {
	data := v.DataP()
	for i := range data {
		data[i] += a
	}
	return v
}

func (v Vector) Apply(f func(float64) float64) Vector {
	data := v.DataP()
	for i, val := range data {
		data[i] = f(val)
	}
	return v
}

func (v Vector) Dot(a Vector) (d float64) {
	return mat.Dot(v.V, a.V)
}

func (v Vector) Sum() (sum float64) {
	for _, val := range v.DataP() {
		sum += val
	}
	return
}

func (v Vector) Min() (min float64) {
	data := v.DataP()
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	data := v.DataP()
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

// ToDiagMatrix places the vector on the diagonal of a new square matrix.
func (v Vector) ToDiagMatrix() Matrix {
	return NewDiagMatrix(v.Len(), v.DataP())
}

// Outer forms the outer product of v with a.
func (v Vector) Outer(a Vector) (R Matrix) {
	R = NewMatrix(v.Len(), a.Len())
	R.M.Outer(1, v.V, a.V)
	return
}
