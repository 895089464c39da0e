// Package boxgrid provides a tensor-product Legendre-Gauss-Lobatto
// discretization of an axis-aligned box, implementing the dg.Provider
// interface: element groups, quadrature grids, face restrictions, opposite
// face connectivity and the affine geometric factors.
package boxgrid

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/godg/utils"
)

// JacobiGQ computes the order-N Gauss quadrature nodes and weights for the
// Jacobi weight (1-x)^alpha (1+x)^beta via the eigenvalues of the symmetric
// tridiagonal recurrence matrix.
func JacobiGQ(alpha, beta float64, N int) (X, W utils.Vector) {
	if N == 0 {
		X = utils.NewVector(1, []float64{-(alpha - beta) / (alpha + beta + 2)})
		W = utils.NewVector(1, []float64{2})
		return
	}
	var (
		np = N + 1
		J  = mat.NewSymDense(np, nil)
	)
	for k := 0; k < np; k++ {
		h1 := 2*float64(k) + alpha + beta
		if k > 0 || alpha+beta > 10*eps {
			J.SetSym(k, k, -0.5*(alpha*alpha-beta*beta)/(h1+2)/h1)
		}
		if k < N {
			fk := float64(k + 1)
			J.SetSym(k, k+1, 2/(h1+2)*math.Sqrt(
				fk*(fk+alpha+beta)*(fk+alpha)*(fk+beta)/(h1+1)/(h1+3)))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(J, true) {
		panic("Jacobi matrix eigendecomposition failed")
	}
	var (
		V     mat.Dense
		x     = eig.Values(nil)
		w     = make([]float64, np)
		scale = math.Pow(2, alpha+beta+1) / (alpha + beta + 1) *
			math.Gamma(alpha+1) * math.Gamma(beta+1) / math.Gamma(alpha+beta+1)
	)
	eig.VectorsTo(&V)
	for i := 0; i < np; i++ {
		v0 := V.At(0, i)
		w[i] = v0 * v0 * scale
	}
	X = utils.NewVector(np, x)
	W = utils.NewVector(np, w)
	return
}

const eps = 2.2204460492503131e-16

// JacobiGL computes the order-N Gauss-Lobatto nodes for the Jacobi weight:
// the endpoints plus the interior Gauss nodes of the incremented weight.
func JacobiGL(alpha, beta float64, N int) (X utils.Vector) {
	x := make([]float64, N+1)
	x[0], x[N] = -1, 1
	if N > 1 {
		interior, _ := JacobiGQ(alpha+1, beta+1, N-2)
		copy(x[1:N], interior.DataP())
	}
	X = utils.NewVector(N+1, x)
	return
}

// JacobiP evaluates the normalized order-N Jacobi polynomial at the points
// of r.
func JacobiP(r utils.Vector, alpha, beta float64, N int) (p []float64) {
	var (
		x      = r.DataP()
		np     = len(x)
		gamma0 = math.Pow(2, alpha+beta+1) / (alpha + beta + 1) *
			math.Gamma(alpha+1) * math.Gamma(beta+1) / math.Gamma(alpha+beta+1)
	)
	prev := make([]float64, np)
	for i := range prev {
		prev[i] = 1 / math.Sqrt(gamma0)
	}
	if N == 0 {
		return prev
	}
	var (
		gamma1 = (alpha + 1) * (beta + 1) / (alpha + beta + 3) * gamma0
		cur    = make([]float64, np)
	)
	for i := range cur {
		cur[i] = ((alpha+beta+2)*x[i]/2 + (alpha-beta)/2) / math.Sqrt(gamma1)
	}
	if N == 1 {
		return cur
	}
	aold := 2 / (2 + alpha + beta) * math.Sqrt((alpha+1)*(beta+1)/(alpha+beta+3))
	for i := 1; i < N; i++ {
		var (
			fi   = float64(i)
			h1   = 2*fi + alpha + beta
			anew = 2 / (h1 + 2) * math.Sqrt((fi+1)*(fi+1+alpha+beta)*
				(fi+1+alpha)*(fi+1+beta)/(h1+1)/(h1+3))
			bnew = -(alpha*alpha - beta*beta) / h1 / (h1 + 2)
			next = make([]float64, np)
		)
		for j := range next {
			next[j] = (-aold*prev[j] + (x[j]-bnew)*cur[j]) / anew
		}
		prev, cur = cur, next
		aold = anew
	}
	return cur
}

// GradJacobiP evaluates the derivative of the normalized order-N Jacobi
// polynomial at the points of r.
func GradJacobiP(r utils.Vector, alpha, beta float64, N int) (dp []float64) {
	dp = make([]float64, len(r.DataP()))
	if N == 0 {
		return
	}
	var (
		scale = math.Sqrt(float64(N) * (float64(N) + alpha + beta + 1))
		inner = JacobiP(r, alpha+1, beta+1, N-1)
	)
	for i, v := range inner {
		dp[i] = scale * v
	}
	return
}

// Vandermonde1D is the modal-to-nodal matrix of the normalized Legendre
// basis at the points of r.
func Vandermonde1D(N int, r utils.Vector) (V utils.Matrix) {
	np := len(r.DataP())
	V = utils.NewMatrix(np, N+1)
	for j := 0; j <= N; j++ {
		V.SetCol(j, JacobiP(r, 0, 0, j))
	}
	return
}

// GradVandermonde1D is the derivative counterpart of Vandermonde1D.
func GradVandermonde1D(N int, r utils.Vector) (Vr utils.Matrix) {
	np := len(r.DataP())
	Vr = utils.NewMatrix(np, N+1)
	for j := 0; j <= N; j++ {
		Vr.SetCol(j, GradJacobiP(r, 0, 0, j))
	}
	return
}

// lglWeights are the quadrature weights attached to the order-N
// Gauss-Lobatto nodes, the row sums of the 1D mass matrix.
func lglWeights(N int, r utils.Vector) utils.Vector {
	var (
		V  = Vandermonde1D(N, r)
		M  = V.Mul(V.Transpose()).Inverse()
		np = N + 1
		w  = make([]float64, np)
	)
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			w[i] += M.At(i, j)
		}
	}
	return utils.NewVector(np, w)
}
