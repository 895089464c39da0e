package boxgrid

import (
	"math"

	"github.com/notargets/godg/utils"
)

// tensorBasis is the tensor product of normalized 1D Legendre polynomials,
// spanning Q^degree on [-1,1]^dim. Mode indices decompose base (degree+1)
// with axis 0 fastest.
type tensorBasis struct {
	dim, degree int
}

func (b tensorBasis) NumModes() int {
	n := 1
	for a := 0; a < b.dim; a++ {
		n *= b.degree + 1
	}
	return n
}

func (b tensorBasis) Degree() int { return b.degree }

// table evaluates every 1D mode (and optionally its derivative) along every
// axis at the given nodes: tab[axis][k][i].
func (b tensorBasis) table(nodes utils.Matrix, grad bool) [][][]float64 {
	tab := make([][][]float64, b.dim)
	for a := 0; a < b.dim; a++ {
		x := nodes.Row(a)
		tab[a] = make([][]float64, b.degree+1)
		for k := 0; k <= b.degree; k++ {
			if grad {
				tab[a][k] = GradJacobiP(x, 0, 0, k)
			} else {
				tab[a][k] = JacobiP(x, 0, 0, k)
			}
		}
	}
	return tab
}

func (b tensorBasis) VandermondeAt(nodes utils.Matrix) utils.Matrix {
	var (
		_, n = nodes.Dims()
		nm   = b.NumModes()
		tab  = b.table(nodes, false)
		V    = utils.NewMatrix(n, nm)
	)
	for m := 0; m < nm; m++ {
		rem := m
		for i := 0; i < n; i++ {
			V.M.Set(i, m, 1)
		}
		for a := 0; a < b.dim; a++ {
			k := rem % (b.degree + 1)
			rem /= b.degree + 1
			for i := 0; i < n; i++ {
				V.M.Set(i, m, V.At(i, m)*tab[a][k][i])
			}
		}
	}
	return V
}

func (b tensorBasis) GradVandermondeAt(nodes utils.Matrix) []utils.Matrix {
	var (
		_, n = nodes.Dims()
		nm   = b.NumModes()
		val  = b.table(nodes, false)
		der  = b.table(nodes, true)
		out  = make([]utils.Matrix, b.dim)
	)
	for d := 0; d < b.dim; d++ {
		V := utils.NewMatrix(n, nm)
		for m := 0; m < nm; m++ {
			rem := m
			for i := 0; i < n; i++ {
				V.M.Set(i, m, 1)
			}
			for a := 0; a < b.dim; a++ {
				k := rem % (b.degree + 1)
				rem /= b.degree + 1
				tab := val
				if a == d {
					tab = der
				}
				for i := 0; i < n; i++ {
					V.M.Set(i, m, V.At(i, m)*tab[a][k][i])
				}
			}
		}
		out[d] = V
	}
	return out
}

// pointBasis is the trace space of a 1D element's endpoint faces: a single
// constant mode. Any polynomial restricts to a representable constant, so
// its nominal degree is unbounded.
type pointBasis struct{}

func (pointBasis) NumModes() int { return 1 }
func (pointBasis) Degree() int   { return math.MaxInt32 }

func (pointBasis) VandermondeAt(nodes utils.Matrix) utils.Matrix {
	_, n := nodes.Dims()
	data := make([]float64, n)
	for i := range data {
		data[i] = 1
	}
	return utils.NewMatrix(n, 1, data)
}

func (pointBasis) GradVandermondeAt(nodes utils.Matrix) []utils.Matrix { return nil }
