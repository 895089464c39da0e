package boxgrid

import (
	"math"

	"github.com/pkg/errors"

	"github.com/notargets/godg/comm"
	"github.com/notargets/godg/dg"
	"github.com/notargets/godg/dof"
	"github.com/notargets/godg/utils"
)

type faceRef struct{ elem, face int }

type connKey struct{ from, to dof.DofDesc }

// Grid is a tensor-product LGL discretization of an axis-aligned box,
// optionally partitioned along axis 0 across the ranks of a communicator.
// It implements dg.Provider.
type Grid struct {
	order int
	dim   int
	k     []int
	h     []float64
	xmin  []float64

	cm          comm.Communicator
	left, right int
	neighbors   []int

	r1d, w1d utils.Vector

	discrs   map[dof.DofDesc]*dg.Discretization
	faceRefs map[dof.DofDesc][]faceRef
	conns    map[connKey]dg.Connection
	opp      dg.Connection
	partSwap map[int]dg.Connection
	quads    map[dof.QuadTag]int

	// faceVolNodes[f] holds face f's unit nodes in volume reference
	// coordinates, dim x Nfp.
	faceVolNodes []utils.Matrix
	faceRows     [][]int
}

// NewGrid builds a single-rank grid of k[a] elements per axis on the box
// [xmin, xmax], with degree-order elements.
func NewGrid(order int, k []int, xmin, xmax []float64) *Grid {
	return newGrid(order, k, xmin, xmax, comm.SingleRank(), -1, -1)
}

// NewPartitionedGrid splits the axis-0 element count across the ranks of
// cm, slab by slab. Every rank must hold at least two element layers so it
// has interior faces of its own.
func NewPartitionedGrid(order int, k []int, xmin, xmax []float64, cm comm.Communicator) *Grid {
	var (
		size, rank = cm.Size(), cm.Rank()
		k0         = k[0]
	)
	if size == 1 {
		return newGrid(order, k, xmin, xmax, cm, -1, -1)
	}
	var (
		base, rem = k0 / size, k0 % size
		local     = base
		start     = rank * base
	)
	if rank < rem {
		local++
		start += rank
	} else {
		start += rem
	}
	if local < 2 {
		panic(errors.Errorf(
			"rank %d would hold %d element layers; partitioning needs at least 2",
			rank, local))
	}
	var (
		h0    = (xmax[0] - xmin[0]) / float64(k0)
		lk    = append([]int{local}, k[1:]...)
		lxmin = append([]float64{xmin[0] + float64(start)*h0}, xmin[1:]...)
		lxmax = append([]float64{xmin[0] + float64(start+local)*h0}, xmax[1:]...)
		left  = rank - 1
		right = rank + 1
	)
	if right == size {
		right = -1
	}
	return newGrid(order, lk, lxmin, lxmax, cm, left, right)
}

func newGrid(order int, k []int, xmin, xmax []float64, cm comm.Communicator,
	left, right int) *Grid {

	dim := len(k)
	if dim == 0 || len(xmin) != dim || len(xmax) != dim {
		panic(errors.New("inconsistent grid dimensions"))
	}
	if order < 1 {
		panic(errors.Errorf("element order must be at least 1, got %d", order))
	}
	g := &Grid{
		order:    order,
		dim:      dim,
		k:        append([]int{}, k...),
		h:        make([]float64, dim),
		xmin:     append([]float64{}, xmin...),
		cm:       cm,
		left:     left,
		right:    right,
		discrs:   make(map[dof.DofDesc]*dg.Discretization),
		faceRefs: make(map[dof.DofDesc][]faceRef),
		conns:    make(map[connKey]dg.Connection),
		partSwap: make(map[int]dg.Connection),
		quads:    make(map[dof.QuadTag]int),
	}
	for a := 0; a < dim; a++ {
		if k[a] < 1 {
			panic(errors.Errorf("need at least one element along axis %d", a))
		}
		g.h[a] = (xmax[a] - xmin[a]) / float64(k[a])
	}
	for _, r := range []int{left, right} {
		if r >= 0 {
			g.neighbors = append(g.neighbors, r)
		}
	}

	g.r1d = JacobiGL(0, 0, order)
	g.w1d = lglWeights(order, g.r1d)

	g.buildVolume()
	g.buildFaces()
	return g
}

// Order is the polynomial degree of the elements.
func (g *Grid) Order() int { return g.order }

// MinElementSize is the smallest element extent over all axes, the length
// scale CFL-style timestep estimates divide by.
func (g *Grid) MinElementSize() float64 {
	m := g.h[0]
	for _, ha := range g.h[1:] {
		if ha < m {
			m = ha
		}
	}
	return m
}

func (g *Grid) numElements() int {
	K := 1
	for _, ka := range g.k {
		K *= ka
	}
	return K
}

// tensorProduct lays out dim-fold tensor nodes and weights, axis 0 fastest.
func tensorProduct(r, w utils.Vector, dim int) (nodes utils.Matrix, weights utils.Vector) {
	var (
		n1 = len(r.DataP())
		np = 1
	)
	for a := 0; a < dim; a++ {
		np *= n1
	}
	nodes = utils.NewMatrix(dim, np)
	wd := make([]float64, np)
	for j := 0; j < np; j++ {
		var (
			rem = j
			wj  = 1.
		)
		for a := 0; a < dim; a++ {
			ja := rem % n1
			rem /= n1
			nodes.M.Set(a, j, r.DataP()[ja])
			wj *= w.DataP()[ja]
		}
		wd[j] = wj
	}
	weights = utils.NewVector(np, wd)
	return
}

func (g *Grid) buildVolume() {
	nodes, weights := tensorProduct(g.r1d, g.w1d, g.dim)
	grp := &dg.ElementGroup{
		Order:       g.order,
		NumElements: g.numElements(),
		Dim:         g.dim,
		Nodes:       nodes,
		Weights:     weights,
		ExactTo:     2*g.order - 1,
		Basis:       tensorBasis{dim: g.dim, degree: g.order},
	}
	g.discrs[dof.DDVolume] = &dg.Discretization{
		DD:     dof.DDVolume,
		Groups: []*dg.ElementGroup{grp},
	}
}

// faceClass tells where one element face lives.
type faceClass uint8

const (
	faceInterior faceClass = iota
	faceBoundary
	facePartLeft
	facePartRight
)

func (g *Grid) classifyFaces(neighbor []int) []faceClass {
	var (
		K      = g.numElements()
		nfaces = 2 * g.dim
		class  = make([]faceClass, K*nfaces)
	)
	for e := 0; e < K; e++ {
		for f := 0; f < nfaces; f++ {
			fid := e*nfaces + f
			if neighbor[fid] >= 0 {
				class[fid] = faceInterior
				continue
			}
			switch {
			case f == 0 && g.left >= 0:
				class[fid] = facePartLeft
			case f == 1 && g.right >= 0:
				class[fid] = facePartRight
			default:
				class[fid] = faceBoundary
			}
		}
	}
	return class
}

func (g *Grid) buildFaces() {
	var (
		K        = g.numElements()
		nfaces   = 2 * g.dim
		n1       = g.order + 1
		neighbor = faceNeighbors(g.k)
		class    = g.classifyFaces(neighbor)
	)

	// face trace space: a (dim-1)-dimensional LGL grid, or a point in 1D
	var (
		faceNodes   utils.Matrix
		faceWeights utils.Vector
		faceBasis   dg.Basis
		faceExact   int
	)
	if g.dim == 1 {
		faceNodes = utils.NewMatrix(1, 1)
		faceWeights = utils.NewVector(1, []float64{1})
		faceBasis = pointBasis{}
		faceExact = math.MaxInt32
	} else {
		faceNodes, faceWeights = tensorProduct(g.r1d, g.w1d, g.dim-1)
		faceBasis = tensorBasis{dim: g.dim - 1, degree: g.order}
		faceExact = 2*g.order - 1
	}
	nfp := len(faceWeights.DataP())

	// per face: volume node rows and volume-coordinate unit nodes
	g.faceRows = make([][]int, nfaces)
	g.faceVolNodes = make([]utils.Matrix, nfaces)
	for f := 0; f < nfaces; f++ {
		var (
			axis = f / 2
			side = f % 2
			rows = make([]int, nfp)
			vn   = utils.NewMatrix(g.dim, nfp)
		)
		for t := 0; t < nfp; t++ {
			var (
				rem    = t
				row    = 0
				stride = 1
			)
			for b := 0; b < g.dim; b++ {
				var jb int
				if b == axis {
					jb = side * g.order
					vn.M.Set(b, t, float64(2*side-1))
				} else {
					jb = rem % n1
					rem /= n1
					vn.M.Set(b, t, g.r1d.DataP()[jb])
				}
				row += jb * stride
				stride *= n1
			}
			rows[t] = row
		}
		g.faceRows[f] = rows
		g.faceVolNodes[f] = vn
	}

	// all faces, face-major: column f*K+e
	allRefs := make([]faceRef, nfaces*K)
	for f := 0; f < nfaces; f++ {
		for e := 0; e < K; e++ {
			allRefs[f*K+e] = faceRef{elem: e, face: f}
		}
	}
	allGrp := &dg.ElementGroup{
		Order:       g.order,
		NumElements: nfaces * K,
		Dim:         g.dim - 1,
		Nodes:       faceNodes,
		Weights:     faceWeights,
		ExactTo:     faceExact,
		Basis:       faceBasis,
		NumFaces:    nfaces,
		FaceNodes:   g.faceVolNodes,
	}
	g.discrs[dof.DDAllFaces] = &dg.Discretization{
		DD:     dof.DDAllFaces,
		Groups: []*dg.ElementGroup{allGrp},
	}
	g.faceRefs[dof.DDAllFaces] = allRefs
	g.addFaceGather(dof.DDVolume, dof.DDAllFaces, allRefs)

	// subsets keep the all-faces traversal order, so matching partition
	// boundaries list their shared faces identically on both ranks
	subset := func(want ...faceClass) []faceRef {
		var refs []faceRef
		for _, ref := range allRefs {
			c := class[ref.elem*nfaces+ref.face]
			for _, w := range want {
				if c == w {
					refs = append(refs, ref)
					break
				}
			}
		}
		return refs
	}

	mkSubset := func(dd dof.DofDesc, refs []faceRef) {
		if len(refs) == 0 {
			return
		}
		grp := &dg.ElementGroup{
			Order:       g.order,
			NumElements: len(refs),
			Dim:         g.dim - 1,
			Nodes:       faceNodes,
			Weights:     faceWeights,
			ExactTo:     faceExact,
			Basis:       faceBasis,
		}
		g.discrs[dd] = &dg.Discretization{DD: dd, Groups: []*dg.ElementGroup{grp}}
		g.faceRefs[dd] = refs
		g.addFaceGather(dof.DDVolume, dd, refs)
		// scatter back into the face-major layout for lifting
		dst := make([]int, len(refs))
		for c, ref := range refs {
			dst[c] = ref.face*K + ref.elem
		}
		g.conns[connKey{from: dd, to: dof.DDAllFaces}] = &scatterConnection{
			out: g.discrs[dof.DDAllFaces],
			dst: dst,
		}
	}

	intRefs := subset(faceInterior)
	mkSubset(dof.DDIntFaces, intRefs)
	mkSubset(dof.Boundary(dof.BTagAll), subset(faceBoundary))
	if g.left >= 0 {
		mkSubset(dof.Partition(g.left), subset(facePartLeft))
	}
	if g.right >= 0 {
		mkSubset(dof.Partition(g.right), subset(facePartRight))
	}

	// opposite-face permutation on the interior faces: matching faces
	// enumerate their transverse nodes identically, so only columns move
	if len(intRefs) > 0 {
		pos := make(map[int]int, len(intRefs))
		for c, ref := range intRefs {
			pos[ref.elem*nfaces+ref.face] = c
		}
		col := make([]int, len(intRefs))
		for c, ref := range intRefs {
			partner, ok := pos[neighbor[ref.elem*nfaces+ref.face]]
			if !ok {
				panic(errors.New("interior face paired with non-interior face"))
			}
			col[c] = partner
		}
		g.opp = &permConnection{out: g.discrs[dof.DDIntFaces], col: col}
	}

	// partition swap: both ranks list the shared faces in the same
	// transverse order, so the exchange needs no reordering
	for _, r := range g.neighbors {
		dd := dof.Partition(r)
		refs := g.faceRefs[dd]
		col := make([]int, len(refs))
		for c := range col {
			col[c] = c
		}
		g.partSwap[r] = &permConnection{out: g.discrs[dd], col: col}
	}
}

func (g *Grid) addFaceGather(from, to dof.DofDesc, refs []faceRef) {
	var (
		col  = make([]int, len(refs))
		rows = make([][]int, len(refs))
	)
	for c, ref := range refs {
		col[c] = ref.elem
		rows[c] = g.faceRows[ref.face]
	}
	g.conns[connKey{from: from, to: to}] = &gatherConnection{
		out:  g.discrs[to],
		col:  col,
		rows: rows,
	}
}

// RegisterQuadrature attaches a Gauss quadrature grid that integrates
// polynomials up to the given degree exactly, reachable via the tag.
func (g *Grid) RegisterQuadrature(tag dof.QuadTag, degree int) {
	if tag == dof.QTagNone {
		panic(errors.New("quadrature tag must be non-empty"))
	}
	var (
		m        = degree/2 + 1
		gr, gw   = JacobiGQ(0, 0, m-1)
		nodes, w = tensorProduct(gr, gw, g.dim)
		dd       = dof.Volume(tag)
	)
	grp := &dg.ElementGroup{
		Order:       g.order,
		NumElements: g.numElements(),
		Dim:         g.dim,
		Nodes:       nodes,
		Weights:     w,
		ExactTo:     2*m - 1,
		Basis:       tensorBasis{dim: g.dim, degree: g.order},
		Quadrature:  true,
	}
	g.discrs[dd] = &dg.Discretization{DD: dd, Groups: []*dg.ElementGroup{grp}}

	// nodal-to-quadrature interpolation
	var (
		volGrp = g.discrs[dof.DDVolume].Groups[0]
		Vinv   = volGrp.Vandermonde().Inverse()
		A      = grp.Basis.VandermondeAt(nodes).Mul(Vinv)
	)
	g.conns[connKey{from: dof.DDVolume, to: dd}] = &interpConnection{
		out: g.discrs[dd],
		A:   A,
	}
	g.quads[tag] = degree
}

// NewContext wraps the grid in an operator context with its quadrature
// rules declared.
func (g *Grid) NewContext() *dg.Context {
	ctx := dg.NewContext(g)
	for tag, deg := range g.quads {
		ctx.MinDegrees[tag] = deg
	}
	return ctx
}

// {{{ dg.Provider implementation

func (g *Grid) AmbientDim() int { return g.dim }
func (g *Grid) Dim() int        { return g.dim }
func (g *Grid) IsAffine() bool  { return true }

func (g *Grid) Comm() comm.Communicator { return g.cm }

func (g *Grid) PartBoundaryRanks() []int { return g.neighbors }

func (g *Grid) Discr(dd dof.DofDesc) (*dg.Discretization, error) {
	d, ok := g.discrs[dd]
	if !ok {
		return nil, errors.Errorf("no discretization for %s", dd)
	}
	return d, nil
}

func (g *Grid) Connection(from, to dof.DofDesc) (dg.Connection, error) {
	c, ok := g.conns[connKey{from: from, to: to}]
	if !ok {
		return nil, errors.Errorf("no connection %s -> %s", from, to)
	}
	return c, nil
}

func (g *Grid) OppositeFaceConnection() dg.Connection {
	if g.opp == nil {
		panic(errors.New("grid has no interior faces"))
	}
	return g.opp
}

func (g *Grid) PartitionSwapConnection(rank int) dg.Connection {
	c, ok := g.partSwap[rank]
	if !ok {
		panic(errors.Errorf("rank %d is not a partition neighbor", rank))
	}
	return c
}

func (g *Grid) IsBoundaryTagEmpty(tag dof.DomainTag) bool {
	if tag.Kind != dof.DomainBoundary {
		return false
	}
	if tag.IsPartition() {
		_, ok := g.discrs[dof.Partition(tag.Rank)]
		return !ok
	}
	if tag.Name == dof.BTagNone {
		return true
	}
	_, ok := g.discrs[dof.DofDesc{Domain: tag}]
	return !ok
}

// jacVolume is the constant volume Jacobian of the affine map.
func (g *Grid) jacVolume() float64 {
	j := 1.
	for _, ha := range g.h {
		j *= ha / 2
	}
	return j
}

// jacSurface is the constant surface Jacobian of one face.
func (g *Grid) jacSurface(face int) float64 {
	var (
		axis = face / 2
		j    = 1.
	)
	for a, ha := range g.h {
		if a != axis {
			j *= ha / 2
		}
	}
	return j
}

func (g *Grid) constField(dd dof.DofDesc, val float64) (*dg.DOFArray, error) {
	d, err := g.Discr(dd)
	if err != nil {
		return nil, err
	}
	out := d.Zeros()
	for _, m := range out.Data {
		for i := range m.DataP {
			m.DataP[i] = val
		}
	}
	return out, nil
}

func (g *Grid) AreaElement(dd dof.DofDesc, dim int) (*dg.DOFArray, error) {
	switch dim {
	case g.dim:
		return g.constField(dd, g.jacVolume())
	case g.dim - 1:
		refs, ok := g.faceRefs[dd]
		if !ok {
			return nil, errors.Errorf("surface Jacobian needs a face descriptor, got %s", dd)
		}
		out := g.discrs[dd].Zeros()
		nr, _ := out.Data[0].Dims()
		for c, ref := range refs {
			js := g.jacSurface(ref.face)
			for r := 0; r < nr; r++ {
				out.Data[0].M.Set(r, c, js)
			}
		}
		return out, nil
	}
	return nil, errors.Errorf("no area element of dimension %d on a %dD grid", dim, g.dim)
}

func (g *Grid) InverseMetric(dd dof.DofDesc, rst, xyz int) (*dg.DOFArray, error) {
	val := 0.
	if rst == xyz {
		val = 2 / g.h[rst]
	}
	return g.constField(dd, val)
}

// unitNodesFor returns, per column of dd, the owning element and the unit
// node coordinates in volume reference space.
func (g *Grid) unitNodesFor(dd dof.DofDesc) (elem []int, unit []utils.Matrix, err error) {
	d, err := g.Discr(dd)
	if err != nil {
		return nil, nil, err
	}
	if refs, ok := g.faceRefs[dd]; ok {
		elem = make([]int, len(refs))
		unit = make([]utils.Matrix, len(refs))
		for c, ref := range refs {
			elem[c] = ref.elem
			unit[c] = g.faceVolNodes[ref.face]
		}
		return
	}
	grp := d.Groups[0]
	elem = make([]int, grp.NumElements)
	unit = make([]utils.Matrix, grp.NumElements)
	for e := range elem {
		elem[e] = e
		unit[e] = grp.Nodes
	}
	return
}

func (g *Grid) Nodes(dd dof.DofDesc, axis int) (*dg.DOFArray, error) {
	elem, unit, err := g.unitNodesFor(dd)
	if err != nil {
		return nil, err
	}
	var (
		out   = g.discrs[dd].Zeros()
		nr, _ = out.Data[0].Dims()
	)
	for c := range elem {
		i := elemCoords(elem[c], g.k)
		for r := 0; r < nr; r++ {
			ref := unit[c].At(axis, r)
			x := g.xmin[axis] + (float64(i[axis])+(ref+1)/2)*g.h[axis]
			out.Data[0].M.Set(r, c, x)
		}
	}
	return out, nil
}

func (g *Grid) Normal(dd dof.DofDesc, axis int) (*dg.DOFArray, error) {
	refs, ok := g.faceRefs[dd]
	if !ok {
		return nil, errors.Errorf("normals need a face descriptor, got %s", dd)
	}
	var (
		out   = g.discrs[dd].Zeros()
		nr, _ = out.Data[0].Dims()
	)
	for c, ref := range refs {
		val := 0.
		if ref.face/2 == axis {
			val = float64(2*(ref.face%2) - 1)
		}
		for r := 0; r < nr; r++ {
			out.Data[0].M.Set(r, c, val)
		}
	}
	return out, nil
}

// }}}
