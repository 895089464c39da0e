package dg

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/notargets/godg/comm"
	"github.com/notargets/godg/dof"
	"github.com/notargets/godg/utils"
)

// Basis is a modal basis spanning polynomials up to a degree on the
// reference element, evaluable at arbitrary reference points.
type Basis interface {
	NumModes() int
	Degree() int
	// VandermondeAt evaluates every mode at the given reference nodes
	// (Dim x n), returning n x NumModes.
	VandermondeAt(nodes utils.Matrix) utils.Matrix
	// GradVandermondeAt evaluates the reference-axis derivatives of every
	// mode, one n x NumModes matrix per axis.
	GradVandermondeAt(nodes utils.Matrix) []utils.Matrix
}

// ElementGroup is one homogeneous block of elements of a discretization.
// The reference matrix cache keys on DiscretizationKey, so distinct groups
// describing the same reference element share cached matrices.
type ElementGroup struct {
	Order       int
	NumElements int
	Dim         int
	// Nodes are the reference nodes, Dim x Np (scalar column count Np).
	Nodes utils.Matrix
	// Weights are the quadrature weights attached to the nodes; ExactTo is
	// the highest polynomial degree they integrate exactly.
	Weights utils.Vector
	ExactTo int
	// Basis spans the group's polynomial space; for face groups it lives
	// in the face's own (Dim-dimensional) coordinates.
	Basis Basis
	// Quadrature marks groups whose nodes are pure quadrature points
	// rather than a unisolvent nodal set.
	Quadrature bool
	// NumFaces is nonzero for face discretization groups, whose elements
	// are ordered face-major: element iface*K+e is face iface of volume
	// element e.
	NumFaces int
	// FaceNodes maps each face's unit nodes into volume reference
	// coordinates, VolumeDim x Nfp per face. Set on face groups.
	FaceNodes []utils.Matrix

	keyOnce sync.Once
	key     string
}

// DiscretizationKey identifies the group's reference element: the basis,
// the node and weight sets, and the quadrature status. Two groups with
// equal keys yield identical reference matrices, so they must receive the
// identical cached matrix object. Element count is excluded; no reference
// matrix depends on it.
func (g *ElementGroup) DiscretizationKey() string {
	g.keyOnce.Do(func() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "o%d d%d e%d q%t f%d %T/%d;",
			g.Order, g.Dim, g.ExactTo, g.Quadrature, g.NumFaces,
			g.Basis, g.Basis.NumModes())
		writeBits := func(data []float64) {
			for _, x := range data {
				fmt.Fprintf(&sb, "%x,", math.Float64bits(x))
			}
			sb.WriteByte(';')
		}
		writeBits(g.Nodes.DataP)
		writeBits(g.Weights.DataP())
		for _, fn := range g.FaceNodes {
			writeBits(fn.DataP)
		}
		g.key = sb.String()
	})
	return g.key
}

// NumNodes is the per-element node count.
func (g *ElementGroup) NumNodes() int {
	_, np := g.Nodes.Dims()
	return np
}

// Vandermonde is the square modal-to-nodal matrix at the group's own nodes.
func (g *ElementGroup) Vandermonde() utils.Matrix {
	return g.Basis.VandermondeAt(g.Nodes)
}

// Discretization is the set of element groups realizing one domain
// descriptor.
type Discretization struct {
	DD     dof.DofDesc
	Groups []*ElementGroup
}

// NumNodes is the total DOF count over all groups.
func (d *Discretization) NumNodes() (n int) {
	for _, g := range d.Groups {
		n += g.NumNodes() * g.NumElements
	}
	return
}

// Zeros allocates a zero field on this discretization.
func (d *Discretization) Zeros() *DOFArray {
	data := make([]utils.Matrix, len(d.Groups))
	for i, g := range d.Groups {
		data[i] = utils.NewMatrix(g.NumNodes(), g.NumElements)
	}
	return &DOFArray{DD: d.DD, Data: data}
}

// FromFunc samples fn at the physical node coordinates.
func (d *Discretization) FromFunc(nodes []*DOFArray, fn func(x []float64) float64) *DOFArray {
	var (
		out = d.Zeros()
		pt  = make([]float64, len(nodes))
	)
	for g := range d.Groups {
		data := out.Data[g].DataP
		for i := range data {
			for a, xa := range nodes {
				pt[a] = xa.Data[g].DataP[i]
			}
			data[i] = fn(pt)
		}
	}
	return out
}

// Connection maps a field from one discretization onto another (restriction
// to faces, interpolation onto a quadrature grid, face-order permutation).
type Connection interface {
	Apply(in *DOFArray) *DOFArray
}

// Provider supplies the mesh-dependent ingredients: discretizations per
// domain descriptor, connections between them, and geometric factors.
type Provider interface {
	AmbientDim() int
	Dim() int

	Discr(dd dof.DofDesc) (*Discretization, error)
	Connection(from, to dof.DofDesc) (Connection, error)
	// OppositeFaceConnection permutes interior-face data to the
	// neighboring element's view of the shared face.
	OppositeFaceConnection() Connection

	// AreaElement is the Jacobian determinant on dd; dim < Dim() selects
	// the surface Jacobian of the embedded faces.
	AreaElement(dd dof.DofDesc, dim int) (*DOFArray, error)
	// InverseMetric is dr_rst/dx_xyz sampled on dd.
	InverseMetric(dd dof.DofDesc, rst, xyz int) (*DOFArray, error)
	Nodes(dd dof.DofDesc, axis int) (*DOFArray, error)
	// Normal is one component of the outward unit normal on a face
	// descriptor.
	Normal(dd dof.DofDesc, axis int) (*DOFArray, error)

	// IsAffine reports whether every element map has constant Jacobian,
	// enabling the exact inverse mass path.
	IsAffine() bool
	IsBoundaryTagEmpty(tag dof.DomainTag) bool

	// PartBoundaryRanks lists the neighboring ranks sharing a partition
	// boundary with this one.
	PartBoundaryRanks() []int
	// PartitionSwapConnection reorders data received from a neighbor into
	// this rank's face ordering on the shared boundary.
	PartitionSwapConnection(rank int) Connection

	Comm() comm.Communicator
}

// Context wraps a Provider with the caches the operator layer needs: the
// reference matrix cache and memoized compiled expressions.
type Context struct {
	Provider Provider

	// MinDegrees declares the quadrature rules the provider supports;
	// upsampling onto an undeclared tag falls back to nodal evaluation.
	MinDegrees map[dof.QuadTag]int

	matrices matrixCache

	mu         sync.Mutex
	normBound  map[normKey]*BoundExpression
	geomFields map[geomKey]*DOFArray
}

func NewContext(p Provider) *Context {
	return &Context{
		Provider:   p,
		MinDegrees: make(map[dof.QuadTag]int),
		normBound:  make(map[normKey]*BoundExpression),
		geomFields: make(map[geomKey]*DOFArray),
	}
}

func (c *Context) mustDiscr(dd dof.DofDesc) *Discretization {
	d, err := c.Provider.Discr(dd)
	if err != nil {
		panic(errors.Wrapf(err, "no discretization for %s", dd))
	}
	return d
}

type geomKey struct {
	what string
	dd   dof.DofDesc
	a, b int
}

// geometry resolves and memoizes a geometric factor field.
func (c *Context) geometry(key geomKey,
	resolve func() (*DOFArray, error)) *DOFArray {

	c.mu.Lock()
	if f, ok := c.geomFields[key]; ok {
		c.mu.Unlock()
		return f
	}
	c.mu.Unlock()

	f, err := resolve()
	if err != nil {
		panic(errors.Wrapf(err, "geometry %s on %s", key.what, key.dd))
	}

	c.mu.Lock()
	c.geomFields[key] = f
	c.mu.Unlock()
	return f
}

func (c *Context) areaElement(dd dof.DofDesc, dim int) *DOFArray {
	return c.geometry(geomKey{what: "jac", dd: dd, a: dim}, func() (*DOFArray, error) {
		return c.Provider.AreaElement(dd, dim)
	})
}

func (c *Context) inverseMetric(dd dof.DofDesc, rst, xyz int) *DOFArray {
	return c.geometry(geomKey{what: "invmetric", dd: dd, a: rst, b: xyz},
		func() (*DOFArray, error) {
			return c.Provider.InverseMetric(dd, rst, xyz)
		})
}

// Nodes returns the physical coordinates of the nodes of dd, one component
// per ambient axis.
func (c *Context) Nodes(dd dof.DofDesc) []*DOFArray {
	out := make([]*DOFArray, c.Provider.AmbientDim())
	for axis := range out {
		axis := axis
		out[axis] = c.geometry(geomKey{what: "nodes", dd: dd, a: axis},
			func() (*DOFArray, error) {
				return c.Provider.Nodes(dd, axis)
			})
	}
	return out
}

// Normal returns the outward unit normal components on a face descriptor.
func (c *Context) Normal(dd dof.DofDesc) []*DOFArray {
	out := make([]*DOFArray, c.Provider.AmbientDim())
	for axis := range out {
		axis := axis
		out[axis] = c.geometry(geomKey{what: "normal", dd: dd, a: axis},
			func() (*DOFArray, error) {
				return c.Provider.Normal(dd, axis)
			})
	}
	return out
}

// Project moves a field between discretizations of the same mesh.
func (c *Context) Project(from, to dof.DofDesc, f Field) Field {
	if from == to {
		return f
	}
	conn, err := c.Provider.Connection(from, to)
	if err != nil {
		panic(errors.Wrapf(err, "no connection %s -> %s", from, to))
	}
	return mapUnary(f, conn.Apply)
}
