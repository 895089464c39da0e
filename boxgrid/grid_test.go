package boxgrid

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/godg/comm"
	"github.com/notargets/godg/dg"
	"github.com/notargets/godg/dof"
	"github.com/notargets/godg/symbolic"
)

func volField(g *Grid, ctx *dg.Context, fn func(x []float64) float64) *dg.DOFArray {
	d, err := g.Discr(dof.DDVolume)
	if err != nil {
		panic(err)
	}
	return d.FromFunc(ctx.Nodes(dof.DDVolume), fn)
}

func fieldMaxAbs(f dg.Field) (m float64) {
	switch v := f.(type) {
	case dg.Scalar:
		return math.Abs(float64(v))
	case *dg.DOFArray:
		for _, mat := range v.Data {
			for _, x := range mat.DataP {
				if a := math.Abs(x); a > m {
					m = a
				}
			}
		}
	case dg.FieldArray:
		for _, c := range v {
			if a := fieldMaxAbs(c); a > m {
				m = a
			}
		}
	}
	return
}

func fieldMaxDiff(a, b dg.Field) float64 { return fieldMaxAbs(dg.Sub(a, b)) }

func TestMassIntegral(t *testing.T) {
	cos2 := func(x []float64) float64 { return math.Cos(x[0]) * math.Cos(x[0]) }
	// integral of cos^2(x0) over [-4pi, 9pi]^d is 13pi/2 * (13pi)^(d-1)
	for d := 1; d <= 3; d++ {
		var (
			k    = make([]int, d)
			lo   = make([]float64, d)
			hi   = make([]float64, d)
			want = 13 * math.Pi / 2
		)
		for a := 0; a < d; a++ {
			k[a], lo[a], hi[a] = 17, -4*math.Pi, 9*math.Pi
			if a > 0 {
				want *= 13 * math.Pi
			}
		}
		var (
			g   = NewGrid(4, k, lo, hi)
			ctx = g.NewContext()
			u   = volField(g, ctx, cos2)
		)
		assert.InDelta(t, want, ctx.Integral(dof.DDVolume, u), 1.e-9)
	}
	// the quadrature-grid mass agrees with the nodal path
	{
		var (
			tag = dof.QuadTag("OVSMP")
			g   = NewGrid(8, []int{32}, []float64{-4 * math.Pi}, []float64{9 * math.Pi})
		)
		g.RegisterQuadrature(tag, 16)
		var (
			ctx   = g.NewContext()
			u     = volField(g, ctx, cos2)
			uq    = ctx.Project(dof.DDVolume, dof.Volume(tag), u)
			quad  = ctx.NodalSum(ctx.Mass(dof.Volume(tag), uq))
			nodal = ctx.Integral(dof.DDVolume, u)
		)
		assert.InDelta(t, nodal, quad, 1.e-10)
		assert.InDelta(t, 13*math.Pi/2, quad, 1.e-9)
	}
}

func TestSurfaceMeasure(t *testing.T) {
	measure := func(g *Grid) float64 {
		var (
			ctx   = g.NewContext()
			bd, _ = g.Discr(dof.Boundary(dof.BTagAll))
			ones  = bd.Zeros()
		)
		for _, m := range ones.Data {
			for i := range m.DataP {
				m.DataP[i] = 1
			}
		}
		lifted := ctx.FaceMass(dof.DDAllFaces,
			ctx.Project(dof.Boundary(dof.BTagAll), dof.DDAllFaces, ones))
		return ctx.NodalSum(lifted)
	}
	// 1D: two boundary points of unit measure
	{
		g := NewGrid(4, []int{5}, []float64{0}, []float64{3})
		assert.InDelta(t, 2, measure(g), 1.e-12)
	}
	// 2D: perimeter of the unit square
	{
		g := NewGrid(3, []int{3, 3}, []float64{0, 0}, []float64{1, 1})
		assert.InDelta(t, 4, measure(g), 1.e-12)
	}
	// 3D: surface area of the unit cube
	{
		g := NewGrid(2, []int{2, 2, 2}, []float64{0, 0, 0}, []float64{1, 1, 1})
		assert.InDelta(t, 6, measure(g), 1.e-12)
	}
}

func TestWeakStrongAdjoint(t *testing.T) {
	// sum(v o WeakDDX(u)) == sum(DDX(v) o Mass(u)) holds exactly on affine
	// elements, independent of how well u and v resolve
	var (
		g   = NewGrid(4, []int{3, 4}, []float64{0, -1}, []float64{2, 1})
		ctx = g.NewContext()
		u   = volField(g, ctx, func(x []float64) float64 {
			return math.Cos(x[0]) * math.Sin(2*x[1])
		})
		v = volField(g, ctx, func(x []float64) float64 {
			return math.Exp(-x[0] * x[0])
		})
	)
	for axis := 0; axis < 2; axis++ {
		lhs := ctx.NodalSum(dg.Mul(v, ctx.WeakDDX(dof.DDVolume, axis, u)))
		rhs := ctx.NodalSum(dg.Mul(ctx.DDX(axis, v), ctx.Mass(dof.DDVolume, u)))
		assert.InDelta(t, rhs, lhs, 1.e-9)
	}
}

func TestInverseMassRoundTrip(t *testing.T) {
	var (
		g   = NewGrid(3, []int{4, 3}, []float64{0, 0}, []float64{1, 2})
		ctx = g.NewContext()
		u   = volField(g, ctx, func(x []float64) float64 {
			return math.Sin(3*x[0]) + x[1]*x[1]
		})
		w = ctx.InverseMass(dof.DDVolume, ctx.Mass(dof.DDVolume, u))
	)
	assert.Less(t, fieldMaxDiff(u, w), 1.e-10)
}

func TestDerivativeExact(t *testing.T) {
	// polynomials inside the tensor space differentiate exactly
	var (
		g   = NewGrid(3, []int{3, 2}, []float64{-1, 0}, []float64{2, 1})
		ctx = g.NewContext()
		u   = volField(g, ctx, func(x []float64) float64 {
			return x[0]*x[0]*x[1] + 4*x[1]
		})
		dudx = volField(g, ctx, func(x []float64) float64 { return 2 * x[0] * x[1] })
		dudy = volField(g, ctx, func(x []float64) float64 { return x[0]*x[0] + 4 })
	)
	assert.Less(t, fieldMaxDiff(dudx, ctx.DDX(0, u)), 1.e-10)
	assert.Less(t, fieldMaxDiff(dudy, ctx.DDX(1, u)), 1.e-10)

	grad := ctx.LocalGrad(u)
	assert.Len(t, grad, 2)
	assert.Less(t, fieldMaxDiff(dudx, grad[0]), 1.e-10)

	// div(grad-free rotation field) vanishes
	var (
		fx  = volField(g, ctx, func(x []float64) float64 { return x[1] })
		fy  = volField(g, ctx, func(x []float64) float64 { return -x[0] })
		div = ctx.LocalDiv(dg.FieldArray{fx, fy})
	)
	assert.Less(t, fieldMaxAbs(div), 1.e-11)
}

func TestTracePairs(t *testing.T) {
	var (
		g   = NewGrid(3, []int{4, 3}, []float64{0, 0}, []float64{2, 3})
		ctx = g.NewContext()
		u   = volField(g, ctx, func(x []float64) float64 { return x[0] + 2*x[1] })
	)
	// a globally continuous field has no jump across interior faces
	{
		tp := ctx.InteriorTracePair(u)
		assert.Less(t, fieldMaxAbs(tp.Diff()), 1.e-12)
		assert.Less(t, fieldMaxDiff(tp.Avg(), tp.Int), 1.e-12)
	}
	// boundary pairs carry the supplied exterior data
	{
		var (
			bdata = ctx.Project(dof.DDVolume, dof.Boundary(dof.BTagAll), u)
			tp    = ctx.BoundaryTracePair(dof.BoundaryTag(dof.BTagAll), u, bdata)
		)
		assert.Less(t, fieldMaxAbs(tp.Diff()), 1.e-12)
	}
	// the interior restriction matches the volume samples on the faces
	{
		var (
			restricted = ctx.Project(dof.DDVolume, dof.DDIntFaces, u)
			d, _       = g.Discr(dof.DDIntFaces)
			direct     = d.FromFunc(ctx.Nodes(dof.DDIntFaces),
				func(x []float64) float64 { return x[0] + 2*x[1] })
		)
		assert.Less(t, fieldMaxDiff(restricted, direct), 1.e-11)
	}
	// a per-element staircase jumps on every interior face, and the
	// opposite-face permutation is an involution
	{
		var (
			d, _ = g.Discr(dof.DDVolume)
			step = d.Zeros()
		)
		nr, nc := step.Data[0].Dims()
		for col := 0; col < nc; col++ {
			for row := 0; row < nr; row++ {
				step.Data[0].M.Set(row, col, float64(col))
			}
		}
		var (
			tp   = ctx.InteriorTracePair(step)
			in   = tp.Int.(*dg.DOFArray)
			ex   = tp.Ext.(*dg.DOFArray)
			same = 0
		)
		for i, x := range in.Data[0].DataP {
			if x == ex.Data[0].DataP[i] {
				same++
			}
		}
		assert.Equal(t, 0, same)

		opp := g.OppositeFaceConnection()
		back := opp.Apply(opp.Apply(in))
		assert.Equal(t, in.Data[0].DataP, back.Data[0].DataP)
	}
}

func TestCrossRankTracePairs(t *testing.T) {
	run := func(order int, k []int, xmin, xmax []float64,
		fn func(x []float64) float64) {

		var (
			group = comm.NewGroup(2)
			wg    sync.WaitGroup
			jump  = make([]float64, 2)
			count = make([]int, 2)
		)
		for rank := 0; rank < 2; rank++ {
			wg.Add(1)
			go func(rank int) {
				defer wg.Done()
				var (
					g     = NewPartitionedGrid(order, k, xmin, xmax, group.Comm(rank))
					ctx   = g.NewContext()
					d, _  = g.Discr(dof.DDVolume)
					u     = d.FromFunc(ctx.Nodes(dof.DDVolume), fn)
					pairs = ctx.CrossRankTracePairs(u, 0)
				)
				count[rank] = len(pairs)
				for _, tp := range pairs {
					if j := fieldMaxAbs(tp.Diff()); j > jump[rank] {
						jump[rank] = j
					}
				}
			}(rank)
		}
		wg.Wait()
		for rank := 0; rank < 2; rank++ {
			assert.Equal(t, 1, count[rank])
			assert.Less(t, jump[rank], 1.e-12)
		}
	}
	// continuous fields see no jump across the partition boundary
	run(3, []int{8}, []float64{0}, []float64{1},
		func(x []float64) float64 { return 3*x[0] - 1 })
	run(2, []int{4, 3}, []float64{0, 0}, []float64{2, 3},
		func(x []float64) float64 { return x[0] + 2*x[1] })
}

func TestBindPipeline(t *testing.T) {
	var (
		tag = dof.QuadTag("OVSMP")
		g   = NewGrid(4, []int{4, 3}, []float64{0, 0}, []float64{1, 2})
	)
	g.RegisterQuadrature(tag, 8)
	var (
		ctx = g.NewContext()
		uf  = volField(g, ctx, func(x []float64) float64 {
			return math.Sin(x[0]) * math.Cos(x[1])
		})
		uv = symbolic.NewVariable("u", dof.DDVolume)
	)
	// inverse mass absorbs the mass application entirely
	{
		b := ctx.Bind(symbolic.Apply(symbolic.NewInverseMassOp(),
			symbolic.Apply(symbolic.NewMassOp(), uv)))
		assert.IsType(t, &symbolic.Variable{}, b.Lowered())
		got := b.Evaluate(dg.Bindings{"u": uf})
		assert.Less(t, fieldMaxDiff(uf, got), 1.e-14)
	}
	// compiled mass matches the direct operator
	{
		b := ctx.Bind(symbolic.Apply(symbolic.NewMassOp(), uv))
		got := b.Evaluate(dg.Bindings{"u": uf})
		assert.Less(t, fieldMaxDiff(ctx.Mass(dof.DDVolume, uf), got), 1.e-12)
	}
	// compiled derivative matches the direct operator
	{
		b := ctx.Bind(symbolic.Apply(symbolic.NewDiffOp(1), uv))
		got := b.Evaluate(dg.Bindings{"u": uf})
		assert.Less(t, fieldMaxDiff(ctx.DDX(1, uf), got), 1.e-11)
	}
	// mass of an upsampled operand routes through the quadrature grid
	{
		b := ctx.Bind(symbolic.Apply(symbolic.NewMassOp(),
			symbolic.Apply(symbolic.NewQuadGridUpsamplerOp(tag), uv)))
		var (
			got  = b.Evaluate(dg.Bindings{"u": uf})
			uq   = ctx.Project(dof.DDVolume, dof.Volume(tag), uf)
			want = ctx.Mass(dof.Volume(tag), uq)
		)
		assert.Less(t, fieldMaxDiff(want, got), 1.e-10)
	}
	// nodal reductions compile down to scalars
	{
		b := ctx.Bind(symbolic.Apply(
			symbolic.NewNodalReductionOp(symbolic.NodalSum, dof.DDVolume),
			symbolic.Apply(symbolic.NewMassOp(), uv)))
		got := b.Evaluate(dg.Bindings{"u": uf})
		assert.InDelta(t, ctx.Integral(dof.DDVolume, uf),
			float64(got.(dg.Scalar)), 1.e-12)
	}
}

func TestNormsAndReductions(t *testing.T) {
	var (
		g   = NewGrid(5, []int{8}, []float64{0}, []float64{2})
		ctx = g.NewContext()
		u   = volField(g, ctx, func(x []float64) float64 { return x[0] })
	)
	// ||x||_2 over [0,2] is sqrt(8/3)
	assert.InDelta(t, math.Sqrt(8./3.), ctx.Norm(u, 2), 1.e-10)
	assert.InDelta(t, 2, ctx.Norm(u, math.Inf(1)), 1.e-12)
	assert.InDelta(t, 0, ctx.NodalMin(u), 1.e-12)
	assert.InDelta(t, 2, ctx.NodalMax(u), 1.e-12)
	assert.InDelta(t, 2, ctx.Integral(dof.DDVolume, u), 1.e-10)

	// vector norms combine componentwise
	var (
		v  = dg.FieldArray{u, u}
		n2 = ctx.Norm(v, 2)
	)
	assert.InDelta(t, math.Sqrt(16./3.), n2, 1.e-10)
}
