package dg

import (
	"github.com/notargets/godg/comm"
	"github.com/notargets/godg/dof"
)

// baseCommTag offsets trace-exchange message tags away from anything a
// driver might use directly.
const baseCommTag = 1273

// TracePair carries the two views of a field on a set of faces: the trace
// taken from inside the element and the neighboring (or boundary) value.
type TracePair struct {
	DD       dof.DofDesc
	Int, Ext Field
}

// Avg is the central average of the two traces.
func (tp *TracePair) Avg() Field { return Mul(Scalar(0.5), Add(tp.Int, tp.Ext)) }

// Diff is the jump, exterior minus interior.
func (tp *TracePair) Diff() Field { return Sub(tp.Ext, tp.Int) }

// InteriorTracePair restricts a volume field to the interior faces and
// pairs it with the neighboring element's view of the same faces.
func (c *Context) InteriorTracePair(f Field) *TracePair {
	interior := c.Project(dof.DDVolume, dof.DDIntFaces, f)
	exterior := mapUnary(interior, c.Provider.OppositeFaceConnection().Apply)
	return &TracePair{DD: dof.DDIntFaces, Int: interior, Ext: exterior}
}

// BoundaryTracePair pairs the restriction of a volume field to a boundary
// with externally supplied boundary data (e.g. from a boundary condition).
func (c *Context) BoundaryTracePair(tag dof.DomainTag, f, bdryData Field) *TracePair {
	dd := dof.DofDesc{Domain: tag}
	return &TracePair{
		DD:  dd,
		Int: c.Project(dof.DDVolume, dd, f),
		Ext: bdryData,
	}
}

// collectDOFs lists the DOFArray components of f in a deterministic order.
func collectDOFs(f Field) (out []*DOFArray) {
	mapUnary(f, func(d *DOFArray) *DOFArray {
		out = append(out, d)
		return d
	})
	return
}

// rebuildWith replaces each DOFArray of f, in the same order collectDOFs
// lists them, with the next entry of repl.
func rebuildWith(f Field, repl []*DOFArray) Field {
	i := 0
	return mapUnary(f, func(*DOFArray) *DOFArray {
		d := repl[i]
		i++
		return d
	})
}

func flatten(d *DOFArray) []float64 {
	n := 0
	for _, m := range d.Data {
		n += len(m.DataP)
	}
	buf := make([]float64, 0, n)
	for _, m := range d.Data {
		buf = append(buf, m.DataP...)
	}
	return buf
}

func unflatten(discr *Discretization, buf []float64) *DOFArray {
	out := discr.Zeros()
	for _, m := range out.Data {
		copy(m.DataP, buf[:len(m.DataP)])
		buf = buf[len(m.DataP):]
	}
	return out
}

// rankExchange is one in-flight boundary swap with a neighboring rank.
type rankExchange struct {
	ctx   *Context
	rank  int
	dd    dof.DofDesc
	local Field
	sends []comm.Request
	recvs []comm.Request
	bufs  [][]float64
}

func (c *Context) startExchange(rank int, f Field, tagOffset int) *rankExchange {
	var (
		dd    = dof.Partition(rank)
		local = c.Project(dof.DDVolume, dd, f)
		cm    = c.Provider.Comm()
		ex    = &rankExchange{ctx: c, rank: rank, dd: dd, local: local}
	)
	for i, d := range collectDOFs(local) {
		var (
			tag = baseCommTag + tagOffset + i
			out = flatten(d)
			in  = make([]float64, len(out))
		)
		ex.sends = append(ex.sends, cm.Isend(rank, tag, out))
		ex.recvs = append(ex.recvs, cm.Irecv(rank, tag, in))
		ex.bufs = append(ex.bufs, in)
	}
	return ex
}

// finish completes the exchange: wait for the remote data, reorder it from
// the neighbor's face ordering into ours, then drain the sends.
func (ex *rankExchange) finish() *TracePair {
	for _, r := range ex.recvs {
		r.Wait()
	}

	var (
		discr  = ex.ctx.mustDiscr(ex.dd)
		swap   = ex.ctx.Provider.PartitionSwapConnection(ex.rank)
		remote = make([]*DOFArray, len(ex.bufs))
	)
	for i, buf := range ex.bufs {
		remote[i] = swap.Apply(unflatten(discr, buf))
	}

	for _, s := range ex.sends {
		s.Wait()
	}

	return &TracePair{
		DD:  ex.dd,
		Int: ex.local,
		Ext: rebuildWith(ex.local, remote),
	}
}

// CrossRankTracePairs exchanges the partition-boundary traces of f with
// every neighboring rank, one pair per neighbor. All ranks must call with
// the same tagOffset; distinct simultaneous exchanges need distinct
// offsets spaced by at least the component count of f.
func (c *Context) CrossRankTracePairs(f Field, tagOffset int) []*TracePair {
	ranks := c.Provider.PartBoundaryRanks()
	exchanges := make([]*rankExchange, len(ranks))
	for i, r := range ranks {
		exchanges[i] = c.startExchange(r, f, tagOffset)
	}
	pairs := make([]*TracePair, len(exchanges))
	for i, ex := range exchanges {
		pairs[i] = ex.finish()
	}
	return pairs
}
