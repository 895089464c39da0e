package boxgrid

import (
	"github.com/notargets/godg/dg"
	"github.com/notargets/godg/utils"
)

// gatherConnection pulls out[r, c] = in[rows[c][r], col[c]], covering
// restriction from the volume onto face sets (single element group).
type gatherConnection struct {
	out  *dg.Discretization
	col  []int
	rows [][]int
}

func (g *gatherConnection) Apply(in *dg.DOFArray) *dg.DOFArray {
	var (
		out = g.out.Zeros()
		src = in.Data[0]
		dst = out.Data[0]
	)
	for c, srcCol := range g.col {
		for r, srcRow := range g.rows[c] {
			dst.M.Set(r, c, src.At(srcRow, srcCol))
		}
	}
	return out
}

// scatterConnection embeds a face subset into a larger face discretization,
// out[:, dst[c]] = in[:, c], zeros elsewhere.
type scatterConnection struct {
	out *dg.Discretization
	dst []int
}

func (s *scatterConnection) Apply(in *dg.DOFArray) *dg.DOFArray {
	var (
		out   = s.out.Zeros()
		src   = in.Data[0]
		nr, _ = src.Dims()
	)
	for c, dstCol := range s.dst {
		for r := 0; r < nr; r++ {
			out.Data[0].M.Set(r, dstCol, src.At(r, c))
		}
	}
	return out
}

// permConnection permutes columns, out[:, c] = in[:, col[c]].
type permConnection struct {
	out *dg.Discretization
	col []int
}

func (p *permConnection) Apply(in *dg.DOFArray) *dg.DOFArray {
	var (
		out   = p.out.Zeros()
		src   = in.Data[0]
		nr, _ = src.Dims()
	)
	for c, srcCol := range p.col {
		for r := 0; r < nr; r++ {
			out.Data[0].M.Set(r, c, src.At(r, srcCol))
		}
	}
	return out
}

// interpConnection applies a nodal interpolation matrix per element,
// out = A in.
type interpConnection struct {
	out *dg.Discretization
	A   utils.Matrix
}

func (ic *interpConnection) Apply(in *dg.DOFArray) *dg.DOFArray {
	out := ic.out.Zeros()
	out.Data[0] = ic.A.Mul(in.Data[0])
	return out
}
