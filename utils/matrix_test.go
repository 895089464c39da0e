package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	// Transpose
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		A := M.Transpose()
		aNr, aNc := A.Dims()
		assert.Equal(t, 3, aNr)
		assert.Equal(t, 2, aNc)
		assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, A.DataP)
	}
	// Mul / Inverse round trip
	{
		M := NewMatrix(2, 2, []float64{
			4, 7,
			2, 6,
		})
		I := M.Mul(M.Inverse())
		assert.InDelta(t, 1, I.At(0, 0), 1.e-14)
		assert.InDelta(t, 0, I.At(0, 1), 1.e-14)
		assert.InDelta(t, 0, I.At(1, 0), 1.e-14)
		assert.InDelta(t, 1, I.At(1, 1), 1.e-14)
	}
	// Kron
	{
		A := NewMatrix(2, 2, []float64{
			1, 2,
			3, 4,
		})
		B := NewMatrix(1, 2, []float64{0, 1})
		K := A.Kron(B)
		nr, nc := K.Dims()
		assert.Equal(t, 2, nr)
		assert.Equal(t, 4, nc)
		assert.Equal(t, []float64{0, 1, 0, 2, 0, 3, 0, 4}, K.DataP)
	}
	// ElMul / Scale / Apply
	{
		M := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		A := NewMatrix(2, 2, []float64{2, 2, 2, 2})
		M.ElMul(A).Scale(0.5).Apply(math.Sqrt)
		assert.InDeltaSlice(t, []float64{1, math.Sqrt2, math.Sqrt(3), 2}, M.DataP, 1.e-15)
	}
	// SliceCols / SliceRows
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		A := M.SliceCols(Index{2, 0})
		assert.Equal(t, []float64{3, 1, 6, 4}, A.DataP)
		B := M.SliceRows(Index{1})
		assert.Equal(t, []float64{4, 5, 6}, B.DataP)
	}
}

func TestVector(t *testing.T) {
	V := NewVector(3, []float64{3, -1, 2})
	assert.Equal(t, 3., V.Max())
	assert.Equal(t, -1., V.Min())
	assert.Equal(t, 4., V.Sum())
	assert.Equal(t, 14., V.Dot(V))
	D := V.ToDiagMatrix()
	assert.Equal(t, -1., D.At(1, 1))
	assert.Equal(t, 0., D.At(0, 1))
}
