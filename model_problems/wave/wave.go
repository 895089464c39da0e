// Package wave solves the first-order acoustic system
//
//	du/dt = -c div(v) + f
//	dv/dt = -c grad(u)
//
// in weak form on a box grid, with upwind numerical fluxes, a radiation
// boundary condition on the whole domain boundary, and cross-rank trace
// exchange when the grid is partitioned.
package wave

import (
	"fmt"
	"math"

	"github.com/notargets/godg/boxgrid"
	"github.com/notargets/godg/dg"
	"github.com/notargets/godg/dof"
	"github.com/notargets/godg/utils"
)

type Wave struct {
	// Input parameters
	CFL, FinalTime float64
	C              float64
	Grid           *boxgrid.Grid
	Ctx            *dg.Context
	// W holds the conserved fields {u, v_0 .. v_dim-1}
	W dg.FieldArray
	// Optional oscillating Gaussian source feeding u
	SourceOmega, SourceWidth float64
	SourceCenter             []float64
	LogFrequency             int
}

// NewWave sets up the solver with a Gaussian bump in u centered in the
// domain and a quiescent velocity field.
func NewWave(CFL, FinalTime, C float64, g *boxgrid.Grid) (wv *Wave) {
	var (
		ctx   = g.NewContext()
		dim   = g.Dim()
		nodes = ctx.Nodes(dof.DDVolume)
	)
	wv = &Wave{
		CFL:          CFL,
		FinalTime:    FinalTime,
		C:            C,
		Grid:         g,
		Ctx:          ctx,
		LogFrequency: 10,
	}
	var (
		center = make([]float64, dim)
		width  = math.Inf(1)
	)
	for a := 0; a < dim; a++ {
		var (
			lo = ctx.NodalMin(nodes[a])
			hi = ctx.NodalMax(nodes[a])
		)
		center[a] = (lo + hi) / 2
		if w := (hi - lo) / 8; w < width {
			width = w
		}
	}
	d, err := g.Discr(dof.DDVolume)
	if err != nil {
		panic(err)
	}
	u := d.FromFunc(nodes, func(x []float64) float64 {
		r2 := 0.
		for a := range x {
			r2 += (x[a] - center[a]) * (x[a] - center[a])
		}
		return math.Exp(-r2 / (width * width))
	})
	wv.W = make(dg.FieldArray, 1+dim)
	wv.W[0] = u
	for a := 0; a < dim; a++ {
		wv.W[1+a] = d.Zeros()
	}
	return
}

// flux is the upwind weak-form numerical flux on the faces of tp,
// {c (n.avg(v) + jump(u)/2), c n (avg(u) + n.jump(v)/2)}.
func (wv *Wave) flux(tp *dg.TracePair) dg.FieldArray {
	var (
		ctx   = wv.Ctx
		dim   = ctx.Provider.Dim()
		n     = ctx.Normal(tp.DD)
		in    = tp.Int.(dg.FieldArray)
		ex    = tp.Ext.(dg.FieldArray)
		uAvg  = dg.Mul(dg.Scalar(0.5), dg.Add(in[0], ex[0]))
		uJmp  = dg.Sub(ex[0], in[0])
		vnAvg = dg.Field(dg.Scalar(0))
		vnJmp = dg.Field(dg.Scalar(0))
	)
	for a := 0; a < dim; a++ {
		vnAvg = dg.Add(vnAvg, dg.Mul(n[a],
			dg.Mul(dg.Scalar(0.5), dg.Add(in[1+a], ex[1+a]))))
		vnJmp = dg.Add(vnJmp, dg.Mul(n[a], dg.Sub(ex[1+a], in[1+a])))
	}
	out := make(dg.FieldArray, 1+dim)
	out[0] = dg.Mul(dg.Scalar(wv.C),
		dg.Add(vnAvg, dg.Mul(dg.Scalar(0.5), uJmp)))
	for a := 0; a < dim; a++ {
		out[1+a] = dg.Mul(dg.Scalar(wv.C),
			dg.Mul(n[a], dg.Add(uAvg, dg.Mul(dg.Scalar(0.5), vnJmp))))
	}
	return out
}

// radiationBC builds the exterior state of the absorbing boundary,
// {(u - n.v)/2, n (n.v - u)/2}.
func (wv *Wave) radiationBC() *dg.TracePair {
	var (
		ctx = wv.Ctx
		dim = ctx.Provider.Dim()
		bdd = dof.Boundary(dof.BTagAll)
		n   = ctx.Normal(bdd)
		in  = ctx.Project(dof.DDVolume, bdd, wv.W).(dg.FieldArray)
		vn  = dg.Field(dg.Scalar(0))
	)
	for a := 0; a < dim; a++ {
		vn = dg.Add(vn, dg.Mul(n[a], in[1+a]))
	}
	ext := make(dg.FieldArray, 1+dim)
	ext[0] = dg.Mul(dg.Scalar(0.5), dg.Sub(in[0], vn))
	for a := 0; a < dim; a++ {
		ext[1+a] = dg.Mul(dg.Scalar(0.5), dg.Mul(n[a], dg.Sub(vn, in[0])))
	}
	return wv.Ctx.BoundaryTracePair(dof.BoundaryTag(dof.BTagAll), wv.W, ext)
}

func (wv *Wave) source(t float64) dg.Field {
	if wv.SourceOmega == 0 {
		return nil
	}
	var (
		ctx    = wv.Ctx
		nodes  = ctx.Nodes(dof.DDVolume)
		d, err = wv.Grid.Discr(dof.DDVolume)
	)
	if err != nil {
		panic(err)
	}
	amp := math.Sin(wv.SourceOmega * t)
	return d.FromFunc(nodes, func(x []float64) float64 {
		r2 := 0.
		for a := range x {
			r2 += (x[a] - wv.SourceCenter[a]) * (x[a] - wv.SourceCenter[a])
		}
		return amp * math.Exp(-r2/(wv.SourceWidth*wv.SourceWidth))
	})
}

// RHS evaluates the semi-discrete operator at time t.
func (wv *Wave) RHS(t float64) dg.FieldArray {
	var (
		ctx = wv.Ctx
		dim = ctx.Provider.Dim()
		u   = wv.W[0]
		v   = dg.FieldArray(wv.W[1 : 1+dim])
	)

	// accumulate every face contribution in the face-major all-faces layout
	fluxAll := make(dg.FieldArray, 1+dim)
	for i := range fluxAll {
		fluxAll[i] = dg.Scalar(0)
	}
	accumulate := func(dd dof.DofDesc, f dg.FieldArray) {
		s := ctx.Project(dd, dof.DDAllFaces, f).(dg.FieldArray)
		for i := range fluxAll {
			fluxAll[i] = dg.Add(fluxAll[i], s[i])
		}
	}

	itp := ctx.InteriorTracePair(wv.W)
	accumulate(itp.DD, wv.flux(itp))

	if !ctx.Provider.IsBoundaryTagEmpty(dof.BoundaryTag(dof.BTagAll)) {
		rad := wv.radiationBC()
		accumulate(rad.DD, wv.flux(rad))
	}

	for _, tp := range ctx.CrossRankTracePairs(wv.W, 0) {
		accumulate(tp.DD, wv.flux(tp))
	}

	rhs := make(dg.FieldArray, 1+dim)
	rhs[0] = dg.Add(
		dg.Mul(dg.Scalar(-wv.C), ctx.WeakLocalDiv(dof.DDVolume, v)),
		ctx.FaceMass(dof.DDAllFaces, fluxAll[0]))
	for a := 0; a < dim; a++ {
		rhs[1+a] = dg.Add(
			dg.Mul(dg.Scalar(-wv.C), ctx.WeakDDX(dof.DDVolume, a, u)),
			ctx.FaceMass(dof.DDAllFaces, fluxAll[1+a]))
	}
	out := ctx.InverseMass(dof.DDVolume, rhs).(dg.FieldArray)

	if src := wv.source(t); src != nil {
		out[0] = dg.Add(out[0], src)
	}
	return out
}

// Dt is the CFL-limited RK4 timestep estimate.
func (wv *Wave) Dt() float64 {
	return wv.CFL * wv.Grid.MinElementSize() /
		(wv.C * float64(2*wv.Grid.Order()+1))
}

// Energy is the squared L2 norm of the full state across all ranks.
func (wv *Wave) Energy() (e float64) {
	for _, f := range wv.W {
		n := wv.Ctx.Norm(f, 2)
		e += n * n
	}
	return
}

// Run integrates to FinalTime with the low-storage RK4 scheme.
func (wv *Wave) Run() {
	var (
		dt     = wv.Dt()
		Nsteps = int(math.Ceil(wv.FinalTime / dt))
		res    = make([]dg.Field, len(wv.W))
	)
	dt = wv.FinalTime / float64(Nsteps)
	for i := range res {
		res[i] = dg.Scalar(0)
	}
	if wv.LogFrequency > 0 {
		fmt.Printf("FinalTime = %8.4f, Nsteps = %d, dt = %8.6f\n",
			wv.FinalTime, Nsteps, dt)
	}

	var Time float64
	for tstep := 0; tstep < Nsteps; tstep++ {
		for intrk := 0; intrk < 5; intrk++ {
			rhs := wv.RHS(Time + utils.RK4c[intrk]*dt)
			for i := range wv.W {
				res[i] = dg.Add(
					dg.Mul(dg.Scalar(utils.RK4a[intrk]), res[i]),
					dg.Mul(dg.Scalar(dt), rhs[i]))
				wv.W[i] = dg.Add(wv.W[i], dg.Mul(dg.Scalar(utils.RK4b[intrk]), res[i]))
			}
		}
		Time += dt
		if wv.LogFrequency > 0 && tstep%wv.LogFrequency == 0 {
			fmt.Printf("Time = %8.4f, L2(u)[%d] = %8.6f\n",
				Time, tstep, wv.Ctx.Norm(wv.W[0], 2))
		}
	}
}
