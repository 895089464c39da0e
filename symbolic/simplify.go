package symbolic

import "github.com/notargets/godg/dof"

// {{{ constant folding

// CommutativeConstantFolder folds constants in sums and products and
// annihilates operator applications whose operand folds to zero (all
// operators in the closed set are linear). A single pass reaches a fixed
// point: folding a subtree cannot expose new foldable constants above it
// that the same pass does not already see.
type CommutativeConstantFolder struct{}

func (f CommutativeConstantFolder) Map(e Expr) Expr {
	switch n := e.(type) {
	case *Sum:
		var (
			acc      float64
			children []Expr
		)
		for _, ch := range n.Children {
			switch c := f.Map(ch).(type) {
			case *Constant:
				acc += c.Value
			default:
				children = append(children, c)
			}
		}
		if acc != 0 {
			children = append(children, NewConstant(acc))
		}
		return NewSum(children...)

	case *Product:
		var (
			acc      = 1.0
			children []Expr
		)
		for _, ch := range n.Children {
			switch c := f.Map(ch).(type) {
			case *Constant:
				acc *= c.Value
			default:
				children = append(children, c)
			}
		}
		if acc == 0 {
			return NewConstant(0)
		}
		if acc != 1 {
			children = append([]Expr{NewConstant(acc)}, children...)
		}
		return NewProduct(children...)

	case *OperatorBinding:
		field := f.Map(n.Field)
		if IsZero(field) {
			return NewConstant(0)
		}
		return Apply(n.Op, field)

	default:
		return mapChildren(e, f.Map)
	}
}

// }}}

// {{{ empty flux killer

// BoundaryEmptinessChecker answers whether a boundary tag selects no faces
// on the local mesh. The mesh provider implements this.
type BoundaryEmptinessChecker interface {
	IsBoundaryTagEmpty(tag dof.DomainTag) bool
}

// EmptyFluxKiller removes boundary flux contributions over boundaries the
// mesh proves empty, replacing them with the zero constant so the constant
// folder can sweep away the surrounding arithmetic.
type EmptyFluxKiller struct {
	Mesh BoundaryEmptinessChecker
}

func (k EmptyFluxKiller) Map(e Expr) Expr {
	if binding, ok := e.(*OperatorBinding); ok {
		var btag dof.DomainTag
		switch op := binding.Op.(type) {
		case BoundaryFluxOp:
			btag = op.BTag
		case QuadBoundaryFluxOp:
			btag = op.BTag
		default:
			return mapChildren(e, k.Map)
		}
		if k.Mesh.IsBoundaryTagEmpty(btag) {
			return NewConstant(0)
		}
	}
	return mapChildren(e, k.Map)
}

// }}}

// {{{ derivative joiner

// DerivativeJoiner merges derivative applications inside a sum:
//
//	Diffx(A) + c*Diffx(B)  ->  Diffx(A + c*B)
//
// exploiting linearity. Scalar factors in a product child migrate into the
// joined operand; a product with more than one non-scalar factor is left
// alone.
type DerivativeJoiner struct{}

func (j DerivativeJoiner) Map(e Expr) Expr {
	n, ok := e.(*Sum)
	if !ok {
		return mapChildren(e, j.Map)
	}

	var (
		// keyOrder keeps output deterministic regardless of map iteration
		keyOrder []Operator
		joined   = make(map[Operator][]Expr)
		rest     []Expr
	)
	record := func(op Operator, field Expr) {
		if _, seen := joined[op]; !seen {
			keyOrder = append(keyOrder, op)
		}
		joined[op] = append(joined[op], field)
	}

	for _, ch := range n.Children {
		switch c := ch.(type) {
		case *OperatorBinding:
			if IsDiffBase(c.Op) {
				record(c.Op, j.Map(c.Field))
				continue
			}
		case *Product:
			var scalars, nonscalars []Expr
			for _, pch := range c.Children {
				if isScalarExpr(pch) {
					scalars = append(scalars, pch)
				} else {
					nonscalars = append(nonscalars, pch)
				}
			}
			if len(nonscalars) == 1 {
				if b, isBinding := nonscalars[0].(*OperatorBinding); isBinding && IsDiffBase(b.Op) {
					factors := append(append([]Expr{}, scalars...), j.Map(b.Field))
					record(b.Op, NewProduct(factors...))
					continue
				}
			}
		}
		rest = append(rest, j.Map(ch))
	}

	for _, op := range keyOrder {
		rest = append(rest, Apply(op, NewSum(joined[op]...)))
	}
	return NewSum(rest...)
}

// }}}

// {{{ inverse mass contractor

// InverseMassContractor pushes an inverse mass operator through the operand
// tree, cancelling M^-1(M(x)) -> x, fusing M^-1(StiffT(x)) into the combined
// operator and turning M^-1(Flux(...)) into a lifted flux. If the push-down
// would leave more than ExtraOperatorThreshold residual inverse mass
// applications, it creates more work than it saves and the binding is kept
// as written.
type InverseMassContractor struct {
	// ExtraOperatorThreshold is the number of residual applications above
	// which a contraction attempt is abandoned. Zero means the default of 1.
	ExtraOperatorThreshold int
}

func (c InverseMassContractor) threshold() int {
	if c.ExtraOperatorThreshold > 0 {
		return c.ExtraOperatorThreshold
	}
	return 1
}

func (c InverseMassContractor) Map(e Expr) Expr {
	binding, ok := e.(*OperatorBinding)
	if !ok {
		return mapChildren(e, c.Map)
	}
	if _, isInvMass := binding.Op.(InverseMassOp); !isInvMass {
		return Apply(binding.Op, c.Map(binding.Field))
	}

	inner := &innerInverseMassContractor{outer: c}
	proposed := inner.rec(binding.Field)
	if inner.extraOperatorCount > c.threshold() {
		return Apply(binding.Op, c.Map(binding.Field))
	}
	return proposed
}

type innerInverseMassContractor struct {
	outer              InverseMassContractor
	extraOperatorCount int
}

// bail wraps expr in an inverse mass application, charging one residual
// operator against the contraction budget.
func (c *innerInverseMassContractor) bail(expr Expr) Expr {
	c.extraOperatorCount++
	return Apply(NewInverseMassOp(), c.outer.Map(expr))
}

func (c *innerInverseMassContractor) rec(e Expr) Expr {
	switch n := e.(type) {
	case *Constant:
		if n.Value == 0 {
			return n
		}
		return Apply(NewInverseMassOp(), n)

	case *Sum:
		children := make([]Expr, len(n.Children))
		for i, ch := range n.Children {
			children[i] = c.rec(ch)
		}
		return NewSum(children...)

	case *Product:
		var scalars, nonscalars []Expr
		for _, ch := range n.Children {
			if isScalarExpr(ch) {
				scalars = append(scalars, ch)
			} else {
				nonscalars = append(nonscalars, ch)
			}
		}
		if len(nonscalars) != 1 {
			return c.bail(e)
		}
		factors := append(append([]Expr{}, scalars...), c.rec(nonscalars[0]))
		return NewProduct(factors...)

	case *OperatorBinding:
		switch op := n.Op.(type) {
		case MassOp:
			return n.Field
		case StiffnessOp:
			return Apply(NewDiffOp(op.XYZAxis), c.outer.Map(n.Field))
		case StiffnessTOp:
			return Apply(NewMInvSTOp(op.XYZAxis), c.outer.Map(n.Field))
		case FluxOp:
			return Apply(NewFluxOp(op.Flux, true), c.outer.Map(n.Field))
		case BoundaryFluxOp:
			return Apply(NewBoundaryFluxOp(op.Flux, op.BTag, true), c.outer.Map(n.Field))
		}
		return c.bail(n)

	default:
		return Apply(NewInverseMassOp(), c.outer.Map(e))
	}
}

// }}}
