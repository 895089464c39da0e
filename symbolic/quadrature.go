package symbolic

import (
	"github.com/pkg/errors"

	"github.com/notargets/godg/dof"
)

// {{{ upsampler removal

// QuadratureUpsamplerRemover strips quadrature upsampling for tags the
// discretization has no rule for. Upsamplers whose tag appears in MinDegrees
// are kept; unknown tags fall back to nodal evaluation, with a warning
// unless DoWarn is false.
type QuadratureUpsamplerRemover struct {
	MinDegrees map[dof.QuadTag]int
	DoWarn     bool
}

func NewQuadratureUpsamplerRemover(minDegrees map[dof.QuadTag]int) QuadratureUpsamplerRemover {
	return QuadratureUpsamplerRemover{MinDegrees: minDegrees, DoWarn: true}
}

func (r QuadratureUpsamplerRemover) Map(e Expr) Expr {
	binding, ok := e.(*OperatorBinding)
	if !ok || !IsUpsampler(binding.Op) {
		return mapChildren(e, r.Map)
	}
	tag := UpsamplerQuadTag(binding.Op)
	if _, have := r.MinDegrees[tag]; have {
		return e
	}
	if r.DoWarn {
		Warnf("no minimum degree for quadrature tag '%s' specified - "+
			"falling back to nodal evaluation", tag)
	}
	return r.Map(binding.Field)
}

// }}}

// {{{ quadrature detection

// quadStatus is the three-valued result of the detector: not determinable
// from this subtree, determined nodal, or determined on a named grid.
type quadStatus struct {
	known bool
	quad  dof.QuadTag
}

var statusUnknown = quadStatus{}

func knownStatus(q dof.QuadTag) quadStatus { return quadStatus{known: true, quad: q} }

// QuadratureDetector determines the quadrature grid in effect at the root
// of an expression. Subtrees that place no constraint (bare constants) are
// ignored; the remaining subtrees must agree, and disagreement is an error
// in the input expression.
type QuadratureDetector struct{}

// Detect returns the tag in effect (QTagNone for nodal) and whether any
// subtree determined it.
func (d QuadratureDetector) Detect(e Expr) (dof.QuadTag, bool, error) {
	st, err := d.rec(e)
	return st.quad, st.known, err
}

func (d QuadratureDetector) rec(e Expr) (quadStatus, error) {
	switch n := e.(type) {
	case *Constant, *ScalarParameter:
		return statusUnknown, nil
	case *Variable:
		return knownStatus(n.DD.Quad), nil
	case *Ones:
		return knownStatus(n.DD.Quad), nil
	case *NodeCoordinateComponent:
		return knownStatus(n.DD.Quad), nil
	case *AreaElement:
		return knownStatus(n.DD.Quad), nil
	case *InverseMetricDerivative:
		return knownStatus(n.DD.Quad), nil

	case *OperatorBinding:
		switch {
		case IsDiffBase(n.Op), IsRefDiffBase(n.Op), IsMassBase(n.Op), IsFluxBase(n.Op):
			// these always produce nodal output
			return knownStatus(dof.QTagNone), nil
		}
		switch op := n.Op.(type) {
		case QuadGridUpsamplerOp:
			return knownStatus(op.Quad), nil
		case QuadInteriorFacesGridUpsamplerOp:
			return knownStatus(op.Quad), nil
		}
		return d.rec(n.Field)

	case *Sum:
		return d.combine(n.Children)
	case *Product:
		return d.combine(n.Children)
	case *Quotient:
		return d.combine([]Expr{n.Num, n.Den})
	case *ExprArray:
		return d.combine(n.Components)
	case *BoundaryPair:
		return d.combine([]Expr{n.Field, n.BField})
	}
	return statusUnknown, nil
}

func (d QuadratureDetector) combine(children []Expr) (quadStatus, error) {
	result := statusUnknown
	for _, ch := range children {
		st, err := d.rec(ch)
		if err != nil {
			return statusUnknown, err
		}
		if !st.known {
			continue
		}
		if !result.known {
			result = st
		} else if result.quad != st.quad {
			return statusUnknown, errors.Errorf(
				"conflicting quadrature grids in one expression: %q vs %q",
				result.quad, st.quad)
		}
	}
	return result, nil
}

// }}}

// {{{ upsampler change

// QuadratureUpsamplerChanger swaps every volume or interior-face upsampler
// for the desired upsampling operator, leaving the operand untouched.
type QuadratureUpsamplerChanger struct {
	Desired Operator
}

func (c QuadratureUpsamplerChanger) Map(e Expr) Expr {
	if binding, ok := e.(*OperatorBinding); ok {
		switch binding.Op.(type) {
		case QuadGridUpsamplerOp, QuadInteriorFacesGridUpsamplerOp:
			return Apply(c.Desired, binding.Field)
		}
	}
	return mapChildren(e, c.Map)
}

// }}}
