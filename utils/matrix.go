package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M     *mat.Dense
	DataP []float64 // raw backing store, row-major
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var data []float64
	if len(dataO) != 0 {
		data = dataO[0]
		if len(data) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(data))
			panic(err)
		}
	} else {
		data = make([]float64, nr*nc)
	}
	R = Matrix{
		M:     mat.NewDense(nr, nc, data),
		DataP: data,
	}
	return
}

func NewDiagMatrix(n int, d []float64) (R Matrix) {
	if len(d) != n {
		panic(fmt.Errorf("diagonal length %d does not match dimension %d", len(d), n))
	}
	R = NewMatrix(n, n)
	for i := 0; i < n; i++ {
		R.Set(i, i, d[i])
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }

func (m Matrix) IsEmpty() bool { return m.M == nil }

func (m Matrix) Set(i, j int, val float64) Matrix { m.M.Set(i, j, val); return m }

func (m Matrix) Copy() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	copy(R.DataP, m.DataP)
	return
}

func (m Matrix) Transpose() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			R.DataP[j*nr+i] = m.DataP[i*nc+j]
		}
	}
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) {
	var (
		nr, _ = m.Dims()
		_, nc = A.Dims()
	)
	R = NewMatrix(nr, nc)
	R.M.Mul(m.M, A.M)
	return
}

// Kron forms the Kronecker product of the receiver with A.
func (m Matrix) Kron(A Matrix) (R Matrix) {
	var (
		mr, mc = m.Dims()
		ar, ac = A.Dims()
	)
	R = NewMatrix(mr*ar, mc*ac)
	R.M.Kronecker(m.M, A.M)
	return
}

// Inverse computes the dense inverse, panics on singular input.
func (m Matrix) Inverse() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	if nr != nc {
		panic(fmt.Errorf("cannot invert non-square %dx%d matrix", nr, nc))
	}
	R = NewMatrix(nr, nc)
	if err := R.M.Inverse(m.M); err != nil {
		panic(fmt.Errorf("matrix inversion failed: %v", err))
	}
	return
}

// Chainable in-place methods
func (m Matrix) Scale(a float64) Matrix {
	for i, val := range m.DataP {
		m.DataP[i] = val * a
	}
	return m
}

func (m Matrix) AddScalar(a float64) Matrix {
	for i, val := range m.DataP {
		m.DataP[i] = val + a
	}
	return m
}

func (m Matrix) Add(A Matrix) Matrix {
	checkSameDims(m, A, "Add")
	for i, val := range A.DataP {
		m.DataP[i] += val
	}
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix {
	checkSameDims(m, A, "Subtract")
	for i, val := range A.DataP {
		m.DataP[i] -= val
	}
	return m
}

// ElMul multiplies elementwise in place (Hadamard product).
func (m Matrix) ElMul(A Matrix) Matrix {
	checkSameDims(m, A, "ElMul")
	for i, val := range A.DataP {
		m.DataP[i] *= val
	}
	return m
}

func (m Matrix) ElDiv(A Matrix) Matrix {
	checkSameDims(m, A, "ElDiv")
	for i, val := range A.DataP {
		m.DataP[i] /= val
	}
	return m
}

func (m Matrix) Apply(f func(float64) float64) Matrix {
	for i, val := range m.DataP {
		m.DataP[i] = f(val)
	}
	return m
}

func (m Matrix) POW(p int) Matrix {
	for i, val := range m.DataP {
		m.DataP[i] = POW(val, p)
	}
	return m
}

func (m Matrix) SetCol(j int, data []float64) Matrix {
	m.M.SetCol(j, data)
	return m
}

func (m Matrix) SetRow(i int, data []float64) Matrix {
	m.M.SetRow(i, data)
	return m
}

func (m Matrix) Row(i int) (V Vector) {
	var (
		_, nc = m.Dims()
	)
	d := make([]float64, nc)
	copy(d, m.DataP[i*nc:(i+1)*nc])
	return NewVector(nc, d)
}

func (m Matrix) Col(j int) (V Vector) {
	var (
		nr, nc = m.Dims()
	)
	d := make([]float64, nr)
	for i := 0; i < nr; i++ {
		d[i] = m.DataP[i*nc+j]
	}
	return NewVector(nr, d)
}

// SliceCols gathers the columns listed in I into a new matrix.
func (m Matrix) SliceCols(I Index) (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, len(I))
	for jj, j := range I {
		if j < 0 || j >= nc {
			panic(fmt.Errorf("column index %d out of bounds [0,%d)", j, nc))
		}
		for i := 0; i < nr; i++ {
			R.DataP[i*len(I)+jj] = m.DataP[i*nc+j]
		}
	}
	return
}

// SliceRows gathers the rows listed in I into a new matrix.
func (m Matrix) SliceRows(I Index) (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(len(I), nc)
	for ii, i := range I {
		if i < 0 || i >= nr {
			panic(fmt.Errorf("row index %d out of bounds [0,%d)", i, nr))
		}
		copy(R.DataP[ii*nc:(ii+1)*nc], m.DataP[i*nc:(i+1)*nc])
	}
	return
}

func (m Matrix) Min() (min float64) {
	min = m.DataP[0]
	for _, val := range m.DataP {
		if val < min {
			min = val
		}
	}
	return
}

func (m Matrix) Max() (max float64) {
	max = m.DataP[0]
	for _, val := range m.DataP {
		if val > max {
			max = val
		}
	}
	return
}

func (m Matrix) Sum() (sum float64) {
	for _, val := range m.DataP {
		sum += val
	}
	return
}

func (m Matrix) InfNorm() (nrm float64) {
	for _, val := range m.DataP {
		if a := abs(val); a > nrm {
			nrm = a
		}
	}
	return
}

func checkSameDims(a, b Matrix, op string) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic(fmt.Errorf("dimension mismatch in %s: %dx%d vs %dx%d", op, ar, ac, br, bc))
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
