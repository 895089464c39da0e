// Package symbolic provides the operator expression tree and the rewrite
// mappers that lower high-level DG operator expressions (mass, stiffness,
// flux, boundary exchange) to reference-space form ready for elementwise
// evaluation.
package symbolic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notargets/godg/dof"
)

// Expr is an immutable expression-tree node. Nodes are shared freely between
// trees; mappers never mutate them, they rebuild.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Warnf reports advisory conditions from the rewrite pipeline (e.g. ambiguous
// operator binding). Tests may swap it out to capture warnings.
var Warnf = func(format string, args ...interface{}) {
	fmt.Printf("WARNING: "+format+"\n", args...)
}

// Variable is a named field reference tied to a domain descriptor.
type Variable struct {
	Name string
	DD   dof.DofDesc
}

func NewVariable(name string, dd dof.DofDesc) *Variable {
	return &Variable{Name: name, DD: dd}
}

func (v *Variable) isExpr()        {}
func (v *Variable) String() string { return v.Name + ":" + v.DD.String() }

type Constant struct {
	Value float64
}

func NewConstant(val float64) *Constant { return &Constant{Value: val} }

func (c *Constant) isExpr()        {}
func (c *Constant) String() string { return strconv.FormatFloat(c.Value, 'g', -1, 64) }

// ScalarParameter is a named scalar (e.g. time) bound at evaluation.
type ScalarParameter struct {
	Name string
}

func (s *ScalarParameter) isExpr()        {}
func (s *ScalarParameter) String() string { return s.Name }

// Ones is the constant-one field on a domain.
type Ones struct {
	DD dof.DofDesc
}

func (o *Ones) isExpr()        {}
func (o *Ones) String() string { return "Ones@" + o.DD.String() }

// NodeCoordinateComponent is one ambient coordinate of the nodes of a domain.
type NodeCoordinateComponent struct {
	Axis int
	DD   dof.DofDesc
}

func (n *NodeCoordinateComponent) isExpr() {}
func (n *NodeCoordinateComponent) String() string {
	return fmt.Sprintf("x[%d]@%s", n.Axis, n.DD)
}

// AreaElement is the Jacobian determinant of the reference-to-physical map,
// sampled on the given domain. Dim < AmbientDim denotes the co-dimension
// surface Jacobian. Resolved by the geometry provider at evaluation.
type AreaElement struct {
	AmbientDim, Dim int
	DD              dof.DofDesc
}

func NewAreaElement(ambientDim, dim int, dd dof.DofDesc) *AreaElement {
	return &AreaElement{AmbientDim: ambientDim, Dim: dim, DD: dd}
}

func (a *AreaElement) isExpr() {}
func (a *AreaElement) String() string {
	return fmt.Sprintf("Jac[%d,%d]@%s", a.AmbientDim, a.Dim, a.DD)
}

// InverseMetricDerivative is d r_rst / d x_xyz sampled on a domain.
type InverseMetricDerivative struct {
	RstAxis, XYZAxis int
	AmbientDim, Dim  int
	DD               dof.DofDesc
}

func (i *InverseMetricDerivative) isExpr() {}
func (i *InverseMetricDerivative) String() string {
	return fmt.Sprintf("InvMetric[r%d,x%d]@%s", i.RstAxis, i.XYZAxis, i.DD)
}

type Sum struct {
	Children []Expr
}

func (s *Sum) isExpr()        {}
func (s *Sum) String() string { return "(" + joinExprs(s.Children, " + ") + ")" }

type Product struct {
	Children []Expr
}

func (p *Product) isExpr()        {}
func (p *Product) String() string { return "(" + joinExprs(p.Children, "*") + ")" }

type Quotient struct {
	Num, Den Expr
}

func (q *Quotient) isExpr()        {}
func (q *Quotient) String() string { return "(" + q.Num.String() + "/" + q.Den.String() + ")" }

// OperatorBinding applies an operator to an operand field.
type OperatorBinding struct {
	Op    Operator
	Field Expr
}

func (b *OperatorBinding) isExpr() {}
func (b *OperatorBinding) String() string {
	return "<" + b.Op.String() + ">(" + b.Field.String() + ")"
}

// Apply binds op to field.
func Apply(op Operator, field Expr) Expr {
	return &OperatorBinding{Op: op, Field: field}
}

// BoundaryPair bundles an interior field with its exterior/boundary
// counterpart for flux evaluation on the named boundary.
type BoundaryPair struct {
	Field  Expr
	BField Expr
	Tag    dof.DomainTag
}

func (b *BoundaryPair) isExpr() {}
func (b *BoundaryPair) String() string {
	return fmt.Sprintf("BPair(%s, %s, %s)", b.Field, b.BField, b.Tag)
}

// ExprArray is an ordered collection of field components (a vector- or
// tensor-valued field made explicit in the tree).
type ExprArray struct {
	Components []Expr
}

func (a *ExprArray) isExpr()        {}
func (a *ExprArray) String() string { return "[" + joinExprs(a.Components, ", ") + "]" }

func joinExprs(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

// IsZero reports whether e is the literal zero constant.
func IsZero(e Expr) bool {
	c, ok := e.(*Constant)
	return ok && c.Value == 0
}

func isScalarExpr(e Expr) bool {
	switch e.(type) {
	case *Constant, *ScalarParameter:
		return true
	}
	return false
}

// NewSum builds a flattened sum: nested sums are inlined, zero constants are
// dropped, an empty sum is the zero constant and a one-term sum is the term
// itself. This is the explicit grouping contract of the expression builder.
func NewSum(children ...Expr) Expr {
	var flat []Expr
	for _, ch := range children {
		switch n := ch.(type) {
		case *Sum:
			flat = append(flat, n.Children...)
		default:
			if !IsZero(ch) {
				flat = append(flat, ch)
			}
		}
	}
	switch len(flat) {
	case 0:
		return NewConstant(0)
	case 1:
		return flat[0]
	}
	return &Sum{Children: flat}
}

// NewProduct builds a flattened product: nested products are inlined, unit
// constants are dropped, a zero factor collapses the product to zero, an
// empty product is one and a one-factor product is the factor itself.
func NewProduct(children ...Expr) Expr {
	var flat []Expr
	for _, ch := range children {
		switch n := ch.(type) {
		case *Product:
			flat = append(flat, n.Children...)
		case *Constant:
			if n.Value == 0 {
				return NewConstant(0)
			}
			if n.Value != 1 {
				flat = append(flat, ch)
			}
		default:
			flat = append(flat, ch)
		}
	}
	switch len(flat) {
	case 0:
		return NewConstant(1)
	case 1:
		return flat[0]
	}
	return &Product{Children: flat}
}

// components returns the parts of a possibly array-valued operand.
func components(e Expr) []Expr {
	if a, ok := e.(*ExprArray); ok {
		return a.Components
	}
	return []Expr{e}
}
