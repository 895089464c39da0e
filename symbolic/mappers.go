package symbolic

import (
	"github.com/pkg/errors"

	"github.com/notargets/godg/dof"
)

// Mapper is a pure tree-to-tree rewrite. The pipeline runs mappers in strict
// order; each mapper's output is the next one's input.
type Mapper interface {
	Map(e Expr) Expr
}

// mapChildren rebuilds a node with rec applied to each child, leaving leaves
// (and operators, which are leaves of the binding node) untouched. Every
// rewriting mapper uses this as its default branch.
func mapChildren(e Expr, rec func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Sum:
		ch := make([]Expr, len(n.Children))
		for i, c := range n.Children {
			ch[i] = rec(c)
		}
		return NewSum(ch...)
	case *Product:
		ch := make([]Expr, len(n.Children))
		for i, c := range n.Children {
			ch[i] = rec(c)
		}
		return NewProduct(ch...)
	case *Quotient:
		return &Quotient{Num: rec(n.Num), Den: rec(n.Den)}
	case *OperatorBinding:
		return Apply(n.Op, rec(n.Field))
	case *BoundaryPair:
		return &BoundaryPair{Field: rec(n.Field), BField: rec(n.BField), Tag: n.Tag}
	case *ExprArray:
		ch := make([]Expr, len(n.Components))
		for i, c := range n.Components {
			ch[i] = rec(c)
		}
		return &ExprArray{Components: ch}
	default:
		return e
	}
}

// mapChildrenErr is mapChildren for mappers that can fail.
func mapChildrenErr(e Expr, rec func(Expr) (Expr, error)) (Expr, error) {
	var err error
	out := mapChildren(e, func(c Expr) Expr {
		if err != nil {
			return c
		}
		var r Expr
		if r, err = rec(c); err != nil {
			return c
		}
		return r
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// {{{ operator binder

// OperatorBinder turns a raw product whose left-most factor is an operator
// into an explicit operator binding. Only the left-most factor of a product
// may be interpreted as an operator; if the remaining factors would still
// form a multi-term product, the binding is ambiguous and a warning is
// issued, with the whole remaining product captured as the operand.
type OperatorBinder struct{}

func (b OperatorBinder) Map(e Expr) Expr {
	n, ok := e.(*Product)
	if !ok {
		return mapChildren(e, b.Map)
	}
	if len(n.Children) == 0 {
		return e
	}
	first := n.Children[0]
	if op, isOp := first.(Operator); isOp {
		rest := NewProduct(n.Children[1:]...)
		if p, multi := rest.(*Product); multi && len(p.Children) > 1 {
			Warnf("binding '%s' to more than one operand in a product is ambiguous - "+
				"use the parenthesized form instead", op)
		}
		return Apply(op, b.Map(rest))
	}
	return NewProduct(first, b.Map(NewProduct(n.Children[1:]...)))
}

// }}}

// {{{ operator specializer

// Representation tags how a field is sampled: nodal (empty Quad) or on the
// named quadrature grid.
type Representation struct {
	Quad dof.QuadTag
}

func (r Representation) IsQuadrature() bool { return r.Quad != dof.QTagNone }

// TypeInfo is the per-node result of an external type-inference pass.
type TypeInfo struct {
	Repr             Representation
	IsBoundaryVector bool
	BoundaryTag      dof.DomainTag
}

// TypeMap is keyed by node identity: the specializer looks up the exact
// nodes present in the tree it is given.
type TypeMap map[Expr]TypeInfo

// OperatorSpecializer substitutes quadrature- or boundary-specific operator
// variants for generic ones, guided by a type map from an external
// type-inference pass.
type OperatorSpecializer struct {
	Types TypeMap
}

func (s OperatorSpecializer) Map(e Expr) (Expr, error) {
	binding, ok := e.(*OperatorBinding)
	if !ok {
		return mapChildrenErr(e, s.Map)
	}

	var (
		hasQuadOperand bool
		fieldType      TypeInfo
		typed          bool
	)
	if _, isBPair := binding.Field.(*BoundaryPair); !isBPair {
		// boundary pairs are not assigned types
		fieldType, typed = s.Types[binding.Field]
		hasQuadOperand = typed && fieldType.Repr.IsQuadrature()
	}

	// The pipeline may run this both before and after the reference
	// lowering, so both operator families are handled.
	switch op := binding.Op.(type) {
	case MassOp:
		if hasQuadOperand {
			field, err := s.Map(binding.Field)
			if err != nil {
				return nil, err
			}
			return Apply(NewQuadMassOp(fieldType.Repr.Quad), field), nil
		}
	case RefMassOp:
		if hasQuadOperand {
			field, err := s.Map(binding.Field)
			if err != nil {
				return nil, err
			}
			return Apply(NewRefQuadMassOp(fieldType.Repr.Quad), field), nil
		}
	case StiffnessTOp:
		if hasQuadOperand {
			field, err := s.Map(binding.Field)
			if err != nil {
				return nil, err
			}
			return Apply(NewQuadStiffnessTOp(op.XYZAxis, fieldType.Repr.Quad), field), nil
		}
	case RefStiffnessTOp:
		if hasQuadOperand {
			field, err := s.Map(binding.Field)
			if err != nil {
				return nil, err
			}
			return Apply(NewRefQuadStiffnessTOp(op.RstAxis, fieldType.Repr.Quad), field), nil
		}
	case QuadGridUpsamplerOp:
		if typed && fieldType.IsBoundaryVector {
			// operand is deliberately left unrewritten, matching the
			// shortcut-free handling of boundary upsampling
			return Apply(NewQuadBoundaryGridUpsamplerOp(op.Quad, fieldType.BoundaryTag),
				binding.Field), nil
		}
	case RestrictToBoundaryOp:
		if hasQuadOperand {
			return nil, errors.Errorf(
				"RestrictToBoundary cannot be applied to quadrature-based operands - "+
					"use QuadUpsample(Boundarize(...)) for boundary %s", op.BTag)
		}
	}

	if IsFluxBase(binding.Op) {
		return s.specializeFlux(binding)
	}

	return mapChildrenErr(e, s.Map)
}

// specializeFlux verifies that all operands of a (possibly boundary) flux
// carry the same representation tag, then substitutes the matching variant.
func (s OperatorSpecializer) specializeFlux(binding *OperatorBinding) (Expr, error) {
	var (
		seen bool
		repr Representation
	)
	processArg := func(arg Expr) error {
		info, ok := s.Types[arg]
		if !ok {
			return errors.Errorf("flux operand %s missing from type map", arg)
		}
		if !seen {
			seen = true
			repr = info.Repr
			return nil
		}
		if info.Repr != repr {
			return errors.Errorf(
				"flux operands disagree on quadrature tag: %q vs %q",
				repr.Quad, info.Repr.Quad)
		}
		return nil
	}

	bpair, isBoundary := binding.Field.(*BoundaryPair)
	if isBoundary {
		for _, arg := range components(bpair.Field) {
			if err := processArg(arg); err != nil {
				return nil, err
			}
		}
		for _, arg := range components(bpair.BField) {
			if err := processArg(arg); err != nil {
				return nil, err
			}
		}
	} else {
		for _, arg := range components(binding.Field) {
			if err := processArg(arg); err != nil {
				return nil, err
			}
		}
	}

	newField, err := s.Map(binding.Field)
	if err != nil {
		return nil, err
	}

	var (
		flux   FluxDescriptor
		isLift bool
	)
	switch op := binding.Op.(type) {
	case FluxOp:
		flux, isLift = op.Flux, op.IsLift
	case BoundaryFluxOp:
		flux, isLift = op.Flux, op.IsLift
	case QuadFluxOp:
		flux = op.Flux
	case QuadBoundaryFluxOp:
		flux = op.Flux
	}

	if repr.IsQuadrature() {
		if isLift {
			return nil, errors.New("lift fluxes cannot take quadrature operands")
		}
		if isBoundary {
			return Apply(NewQuadBoundaryFluxOp(flux, repr.Quad, bpair.Tag), newField), nil
		}
		return Apply(NewQuadFluxOp(flux, repr.Quad), newField), nil
	}
	if isBoundary {
		return Apply(NewBoundaryFluxOp(flux, bpair.Tag, isLift), newField), nil
	}
	return Apply(NewFluxOp(flux, isLift), newField), nil
}

// }}}

// {{{ global-to-reference mapper

// GlobalToReferenceMapper lowers operators acting on the global function
// space to reference-element operators with explicit multiplication by the
// geometric factors. It runs after operator specialization, so any generic
// operator encountered here is known to be nodal.
type GlobalToReferenceMapper struct {
	AmbientDim, Dim int
}

func NewGlobalToReferenceMapper(ambientDim int, dim ...int) GlobalToReferenceMapper {
	d := ambientDim
	if len(dim) != 0 {
		d = dim[0]
	}
	return GlobalToReferenceMapper{AmbientDim: ambientDim, Dim: d}
}

func (m GlobalToReferenceMapper) Map(e Expr) Expr {
	binding, ok := e.(*OperatorBinding)
	if !ok {
		return mapChildren(e, m.Map)
	}

	jacIn := NewAreaElement(m.AmbientDim, m.Dim, binding.Op.DDIn())
	jacNoquad := NewAreaElement(m.AmbientDim, m.Dim,
		binding.Op.DDIn().WithQuad(dof.QTagNone))

	// rewriteDerivative expresses a physical-axis derivative as the
	// metric-weighted sum of reference-axis applications.
	rewriteDerivative := func(mk func(rstAxis int, ddIn dof.DofDesc) Operator,
		xyzAxis int, field Expr, ddIn dof.DofDesc, withJacobian bool) Expr {
		recField := m.Map(field)
		if withJacobian {
			recField = NewProduct(NewAreaElement(m.AmbientDim, m.Dim, ddIn), recField)
		}
		terms := make([]Expr, m.Dim)
		for rst := 0; rst < m.Dim; rst++ {
			terms[rst] = NewProduct(
				&InverseMetricDerivative{
					RstAxis: rst, XYZAxis: xyzAxis,
					AmbientDim: m.AmbientDim, Dim: m.Dim,
					DD: ddIn,
				},
				Apply(mk(rst, ddIn), recField))
		}
		return NewSum(terms...)
	}

	switch op := binding.Op.(type) {
	case MassOp:
		return Apply(NewRefMassOp(op.DDIn(), op.DDOut()),
			NewProduct(jacIn, m.Map(binding.Field)))

	case QuadMassOp:
		return Apply(NewRefQuadMassOp(op.Quad),
			NewProduct(jacIn, m.Map(binding.Field)))

	case InverseMassOp:
		return Apply(NewRefInverseMassOp(op.DDIn(), op.DDOut()),
			NewProduct(&Quotient{Num: NewConstant(1), Den: jacIn}, m.Map(binding.Field)))

	case FaceMassOp:
		// negative sign: surface Jacobians follow the outward-normal
		// convention
		jacInSurf := NewProduct(NewConstant(-1),
			NewAreaElement(m.AmbientDim, m.Dim-1, op.DDIn()))
		return Apply(NewRefFaceMassOp(op.DDIn(), op.DDOut()),
			NewProduct(jacInSurf, m.Map(binding.Field)))

	case StiffnessOp:
		return Apply(NewRefMassOp(dof.DDVolume, dof.DDVolume),
			NewProduct(jacNoquad,
				m.Map(Apply(NewDiffOp(op.XYZAxis), binding.Field))))

	case DiffOp:
		return rewriteDerivative(
			func(rst int, ddIn dof.DofDesc) Operator { return NewRefDiffOp(rst, ddIn) },
			op.XYZAxis, binding.Field, op.DDIn(), false)

	case StiffnessTOp:
		return rewriteDerivative(
			func(rst int, ddIn dof.DofDesc) Operator { return NewRefStiffnessTOp(rst, ddIn) },
			op.XYZAxis, binding.Field, op.DDIn(), true)

	case QuadStiffnessTOp:
		return rewriteDerivative(
			func(rst int, ddIn dof.DofDesc) Operator {
				return NewRefQuadStiffnessTOp(rst, op.Quad)
			},
			op.XYZAxis, binding.Field, op.DDIn(), true)

	case MInvSTOp:
		return m.Map(Apply(NewInverseMassOp(),
			Apply(NewStiffnessTOp(op.XYZAxis), binding.Field)))

	default:
		return mapChildren(e, m.Map)
	}
}

// }}}
