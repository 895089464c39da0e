package boxgrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/godg/utils"
)

func TestJacobi(t *testing.T) {
	// Gauss weights integrate constants over [-1,1]
	{
		for N := 0; N < 6; N++ {
			_, W := JacobiGQ(0, 0, N)
			assert.InDelta(t, 2, W.Sum(), 1.e-12)
		}
	}
	// Gauss quadrature of order N is exact for x^(2N+1) (odd, zero) and x^(2N)
	{
		X, W := JacobiGQ(0, 0, 3)
		var i6, i7 float64
		for i, x := range X.DataP() {
			i6 += W.DataP()[i] * math.Pow(x, 6)
			i7 += W.DataP()[i] * math.Pow(x, 7)
		}
		assert.InDelta(t, 2./7., i6, 1.e-12)
		assert.InDelta(t, 0, i7, 1.e-12)
	}
	// Gauss-Lobatto nodes include the endpoints and are symmetric
	{
		X := JacobiGL(0, 0, 4)
		x := X.DataP()
		assert.Equal(t, -1., x[0])
		assert.Equal(t, 1., x[4])
		assert.InDelta(t, 0, x[2], 1.e-12)
		assert.InDelta(t, x[1], -x[3], 1.e-12)
	}
	// Lobatto weights integrate polynomials up to degree 2N-1
	{
		var (
			N = 4
			X = JacobiGL(0, 0, N)
			W = lglWeights(N, X)
		)
		var i0, i6 float64
		for i, x := range X.DataP() {
			i0 += W.DataP()[i]
			i6 += W.DataP()[i] * math.Pow(x, 6)
		}
		assert.InDelta(t, 2, i0, 1.e-12)
		assert.InDelta(t, 2./7., i6, 1.e-12)
	}
	// normalized Legendre polynomials are orthonormal under Gauss quadrature
	{
		var (
			X, W = JacobiGQ(0, 0, 6)
			P2   = JacobiP(X, 0, 0, 2)
			P3   = JacobiP(X, 0, 0, 3)
		)
		var n22, n33, n23 float64
		for i := range P2 {
			n22 += W.DataP()[i] * P2[i] * P2[i]
			n33 += W.DataP()[i] * P3[i] * P3[i]
			n23 += W.DataP()[i] * P2[i] * P3[i]
		}
		assert.InDelta(t, 1, n22, 1.e-12)
		assert.InDelta(t, 1, n33, 1.e-12)
		assert.InDelta(t, 0, n23, 1.e-12)
	}
	// GradJacobiP matches a central difference
	{
		var (
			x  = utils.NewVector(1, []float64{0.3})
			xp = utils.NewVector(1, []float64{0.3 + 1.e-6})
			xm = utils.NewVector(1, []float64{0.3 - 1.e-6})
			d  = GradJacobiP(x, 0, 0, 5)[0]
			fd = (JacobiP(xp, 0, 0, 5)[0] - JacobiP(xm, 0, 0, 5)[0]) / 2.e-6
		)
		assert.InDelta(t, fd, d, 1.e-6)
	}
	// differentiation matrix is exact on the nodal space
	{
		var (
			N  = 5
			r  = JacobiGL(0, 0, N)
			V  = Vandermonde1D(N, r)
			Vr = GradVandermonde1D(N, r)
			Dr = Vr.Mul(V.Inverse())
		)
		// d/dr r^3 = 3 r^2
		var (
			np = N + 1
			f  = make([]float64, np)
		)
		for i, x := range r.DataP() {
			f[i] = x * x * x
		}
		df := Dr.Mul(utils.NewMatrix(np, 1, f))
		for i, x := range r.DataP() {
			assert.InDelta(t, 3*x*x, df.At(i, 0), 1.e-11)
		}
	}
}

func TestTensorBasis(t *testing.T) {
	// the 2D Vandermonde at the tensor LGL nodes is square and invertible
	{
		var (
			b        = tensorBasis{dim: 2, degree: 3}
			r        = JacobiGL(0, 0, 3)
			w        = lglWeights(3, r)
			nodes, _ = tensorProduct(r, w, 2)
			V        = b.VandermondeAt(nodes)
		)
		nr, nc := V.Dims()
		assert.Equal(t, 16, nr)
		assert.Equal(t, 16, nc)
		I := V.Mul(V.Inverse())
		assert.InDelta(t, 1, I.At(5, 5), 1.e-10)
		assert.InDelta(t, 0, I.At(5, 6), 1.e-10)
	}
	// gradient Vandermonde differentiates the right axis
	{
		var (
			b     = tensorBasis{dim: 2, degree: 2}
			nodes = utils.NewMatrix(2, 1, []float64{0.25, -0.5})
			hx    = utils.NewMatrix(2, 1, []float64{0.25 + 1.e-6, -0.5})
			V     = b.VandermondeAt(nodes)
			Vx    = b.VandermondeAt(hx)
			G     = b.GradVandermondeAt(nodes)
		)
		for m := 0; m < b.NumModes(); m++ {
			fd := (Vx.At(0, m) - V.At(0, m)) / 1.e-6
			assert.InDelta(t, fd, G[0].At(0, m), 1.e-5)
		}
	}
}

func TestFaceNeighbors(t *testing.T) {
	// 1D chain: interior faces pair left-high with right-low
	{
		nb := faceNeighbors([]int{3})
		// element 0: low face boundary, high face pairs elem 1 low
		assert.Equal(t, -1, nb[0])
		assert.Equal(t, 2, nb[1])
		assert.Equal(t, 1, nb[2])
		assert.Equal(t, -1, nb[5])
	}
	// 2D grid: counts of paired faces match the interior face count
	{
		var (
			nb       = faceNeighbors([]int{3, 2})
			interior int
		)
		for _, n := range nb {
			if n >= 0 {
				interior++
			}
		}
		// 2*(3-1)*2 vertical + 2*3*(2-1) horizontal interior face sides
		assert.Equal(t, 14, interior)
		// pairing is symmetric
		for i, n := range nb {
			if n >= 0 {
				assert.Equal(t, i, nb[n])
			}
		}
	}
}
