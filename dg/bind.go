package dg

import (
	"github.com/pkg/errors"

	"github.com/notargets/godg/dof"
	"github.com/notargets/godg/symbolic"
	"github.com/notargets/godg/utils"
)

// Bindings supplies values for the free variables and scalar parameters of
// a bound expression at evaluation time.
type Bindings map[string]Field

// BoundExpression is a compiled operator expression: the rewrite pipeline
// has run and every operator in the tree is in reference form, ready for
// elementwise evaluation.
type BoundExpression struct {
	ctx  *Context
	expr symbolic.Expr
}

// Lowered exposes the compiled tree, mainly for inspection in tests and
// diagnostics.
func (b *BoundExpression) Lowered() symbolic.Expr { return b.expr }

// Bind compiles an operator expression against this context's mesh. The
// pipeline order is fixed: validation, operator binding, quadrature
// specialization, empty-flux removal, derivative joining, inverse-mass
// contraction, quadrature fallback, reference lowering, constant folding.
func (c *Context) Bind(e symbolic.Expr) *BoundExpression {
	if err := (symbolic.ErrorChecker{Dim: c.Provider.Dim()}).Check(e); err != nil {
		panic(err)
	}

	e = symbolic.OperatorBinder{}.Map(e)

	e, err := (symbolic.OperatorSpecializer{Types: inferTypes(e)}).Map(e)
	if err != nil {
		panic(err)
	}

	e = symbolic.EmptyFluxKiller{Mesh: c.Provider}.Map(e)
	e = symbolic.DerivativeJoiner{}.Map(e)
	e = symbolic.InverseMassContractor{}.Map(e)
	e = symbolic.NewQuadratureUpsamplerRemover(c.MinDegrees).Map(e)
	e = symbolic.NewGlobalToReferenceMapper(
		c.Provider.AmbientDim(), c.Provider.Dim()).Map(e)
	e = symbolic.CommutativeConstantFolder{}.Map(e)

	return &BoundExpression{ctx: c, expr: e}
}

// inferTypes assigns a representation to every node the specializer may
// consult, using the quadrature detector for composite subtrees.
func inferTypes(e symbolic.Expr) symbolic.TypeMap {
	var (
		types    = make(symbolic.TypeMap)
		detector symbolic.QuadratureDetector
	)
	symbolic.Walk(e, func(n symbolic.Expr) {
		info := symbolic.TypeInfo{}
		switch v := n.(type) {
		case symbolic.Operator:
			return
		case *symbolic.BoundaryPair:
			info.IsBoundaryVector = true
			info.BoundaryTag = v.Tag
		case *symbolic.Variable:
			if v.DD.Domain.Kind == dof.DomainBoundary {
				info.IsBoundaryVector = true
				info.BoundaryTag = v.DD.Domain
			}
		case *symbolic.OperatorBinding:
			if op, ok := v.Op.(symbolic.RestrictToBoundaryOp); ok {
				info.IsBoundaryVector = true
				info.BoundaryTag = op.BTag
			}
		}
		tag, known, err := detector.Detect(n)
		if err != nil {
			panic(err)
		}
		if known {
			info.Repr = symbolic.Representation{Quad: tag}
		}
		types[n] = info
	})
	return types
}

// Evaluate runs the compiled tree against concrete field bindings.
func (b *BoundExpression) Evaluate(binds Bindings) Field {
	return b.eval(b.expr, binds)
}

func (b *BoundExpression) eval(e symbolic.Expr, binds Bindings) Field {
	c := b.ctx
	switch n := e.(type) {
	case *symbolic.Variable:
		f, ok := binds[n.Name]
		if !ok {
			panic(errors.Errorf("no binding for variable %q", n.Name))
		}
		return f
	case *symbolic.Constant:
		return Scalar(n.Value)
	case *symbolic.ScalarParameter:
		f, ok := binds[n.Name]
		if !ok {
			panic(errors.Errorf("no binding for scalar parameter %q", n.Name))
		}
		return f
	case *symbolic.Ones:
		out := c.mustDiscr(n.DD).Zeros()
		for _, m := range out.Data {
			for i := range m.DataP {
				m.DataP[i] = 1
			}
		}
		return out
	case *symbolic.NodeCoordinateComponent:
		return c.Nodes(n.DD)[n.Axis]
	case *symbolic.AreaElement:
		return c.areaElement(n.DD, n.Dim)
	case *symbolic.InverseMetricDerivative:
		return c.inverseMetric(n.DD, n.RstAxis, n.XYZAxis)

	case *symbolic.Sum:
		out := Field(Scalar(0))
		for _, ch := range n.Children {
			out = Add(out, b.eval(ch, binds))
		}
		return out
	case *symbolic.Product:
		out := Field(Scalar(1))
		for _, ch := range n.Children {
			out = Mul(out, b.eval(ch, binds))
		}
		return out
	case *symbolic.Quotient:
		return Div(b.eval(n.Num, binds), b.eval(n.Den, binds))
	case *symbolic.ExprArray:
		out := make(FieldArray, len(n.Components))
		for i, ch := range n.Components {
			out[i] = b.eval(ch, binds)
		}
		return out

	case *symbolic.OperatorBinding:
		return b.apply(n.Op, b.eval(n.Field, binds))
	}
	panic(errors.Errorf("cannot evaluate expression node %T", e))
}

// applyMatrix runs a per-group matrix product against every DOFArray in f.
func (c *Context) applyMatrix(ddIn dof.DofDesc,
	mat func(out, in *ElementGroup) utils.Matrix, f Field) Field {

	return mapUnary(f, func(v *DOFArray) *DOFArray {
		vol, in := c.pairGroups(ddIn)
		out := vol.Zeros()
		for g := range vol.Groups {
			out.Data[g] = mat(vol.Groups[g], in.Groups[g]).Mul(v.Data[g])
		}
		return out
	})
}

func (b *BoundExpression) apply(op symbolic.Operator, f Field) Field {
	c := b.ctx
	switch o := op.(type) {
	case symbolic.RefMassOp:
		return c.applyMatrix(o.DDIn(), c.refMass, f)
	case symbolic.RefQuadMassOp:
		return c.applyMatrix(o.DDIn(), c.refMass, f)
	case symbolic.RefInverseMassOp:
		return c.applyMatrix(o.DDIn(),
			func(out, in *ElementGroup) utils.Matrix {
				return c.refInverseMass(out)
			}, f)
	case symbolic.RefDiffOp:
		return c.applyMatrix(o.DDIn(),
			func(out, in *ElementGroup) utils.Matrix {
				return c.refDeriv(in, o.RstAxis)
			}, f)
	case symbolic.RefStiffnessTOp:
		return c.applyMatrix(o.DDIn(),
			func(out, in *ElementGroup) utils.Matrix {
				return c.refStiffnessT(out, in, o.RstAxis)
			}, f)
	case symbolic.RefQuadStiffnessTOp:
		return c.applyMatrix(o.DDIn(),
			func(out, in *ElementGroup) utils.Matrix {
				return c.refStiffnessT(out, in, o.RstAxis)
			}, f)

	case symbolic.RefFaceMassOp:
		// the lowered operand already carries the signed surface Jacobian
		return mapUnary(f, func(v *DOFArray) *DOFArray {
			vol, in := c.pairGroups(o.DDIn())
			out := vol.Zeros()
			for g := range vol.Groups {
				var (
					faceGrp = in.Groups[g]
					mats    = c.refFaceMass(faceGrp, vol.Groups[g])
					K       = vol.Groups[g].NumElements
				)
				for iface := 0; iface < faceGrp.NumFaces; iface++ {
					cols := utils.NewRange(iface*K, (iface+1)*K-1)
					out.Data[g].Add(mats[iface].Mul(v.Data[g].SliceCols(cols)))
				}
			}
			return out
		})

	case symbolic.QuadGridUpsamplerOp:
		return c.Project(dof.DDVolume, dof.Volume(o.Quad), f)
	case symbolic.QuadInteriorFacesGridUpsamplerOp:
		return c.Project(dof.DDIntFaces, dof.DDIntFaces.WithQuad(o.Quad), f)
	case symbolic.QuadBoundaryGridUpsamplerOp:
		return c.Project(o.DDIn(), o.DDOut(), f)
	case symbolic.RestrictToBoundaryOp:
		return c.Project(dof.DDVolume, o.DDOut(), f)
	case symbolic.InterpolationOp:
		return c.Project(o.DDIn(), o.DDOut(), f)
	case symbolic.OppositeInteriorFaceSwapOp:
		return mapUnary(f, c.Provider.OppositeFaceConnection().Apply)

	case symbolic.NodalReductionOp:
		switch o.Kind {
		case symbolic.NodalSum:
			return Scalar(c.NodalSum(f))
		case symbolic.NodalMin:
			return Scalar(c.NodalMin(f))
		default:
			return Scalar(c.NodalMax(f))
		}
	}

	if symbolic.IsFluxBase(op) {
		panic(errors.Errorf(
			"numerical flux %s must be evaluated by the driver from trace pairs", op))
	}
	panic(errors.Errorf("operator %s survived lowering unexpectedly", op))
}
