package symbolic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/godg/dof"
)

func TestOperatorBinder(t *testing.T) {
	var (
		u = NewVariable("u", dof.DDVolume)
		v = NewVariable("v", dof.DDVolume)
	)
	// left-most operator in a product binds the rest
	{
		expr := NewProduct(NewDiffOp(0), u)
		bound := OperatorBinder{}.Map(expr)
		assert.Equal(t, Apply(NewDiffOp(0), u).String(), bound.String())
	}
	// binding to a multi-term product warns and captures the whole product
	{
		var warned string
		saved := Warnf
		Warnf = func(format string, args ...interface{}) {
			warned = fmt.Sprintf(format, args...)
		}
		defer func() { Warnf = saved }()

		expr := NewProduct(NewMassOp(), u, v)
		bound := OperatorBinder{}.Map(expr)
		assert.Contains(t, warned, "ambiguous")
		assert.Equal(t, Apply(NewMassOp(), NewProduct(u, v)).String(), bound.String())
	}
	// a non-operator head factor stays a plain factor
	{
		expr := NewProduct(u, NewDiffOp(1), v)
		bound := OperatorBinder{}.Map(expr)
		assert.Equal(t, NewProduct(u, Apply(NewDiffOp(1), v)).String(), bound.String())
	}
}

func TestOperatorSpecializer(t *testing.T) {
	var (
		ovsmp = dof.QuadTag("OVSMP")
		u     = NewVariable("u", dof.DDVolume)
		uq    = NewVariable("uq", dof.Volume(ovsmp))
		vq    = NewVariable("vq", dof.Volume(ovsmp))
	)
	// quadrature operand turns mass into its quadrature variant
	{
		s := OperatorSpecializer{Types: TypeMap{
			uq: {Repr: Representation{Quad: ovsmp}},
		}}
		out, err := s.Map(Apply(NewMassOp(), uq))
		assert.NoError(t, err)
		assert.Equal(t, Apply(NewQuadMassOp(ovsmp), uq).String(), out.String())
	}
	// nodal operand leaves the generic operator alone
	{
		s := OperatorSpecializer{Types: TypeMap{u: {}}}
		out, err := s.Map(Apply(NewMassOp(), u))
		assert.NoError(t, err)
		assert.Equal(t, Apply(NewMassOp(), u).String(), out.String())
	}
	// boundary restriction of quadrature data is rejected
	{
		s := OperatorSpecializer{Types: TypeMap{
			uq: {Repr: Representation{Quad: ovsmp}},
		}}
		_, err := s.Map(Apply(NewRestrictToBoundaryOp(dof.BoundaryTag("inflow")), uq))
		assert.Error(t, err)
	}
	// flux operands must agree on their grid
	{
		s := OperatorSpecializer{Types: TypeMap{
			uq: {Repr: Representation{Quad: ovsmp}},
			u:  {},
		}}
		fd := FluxDescriptor{Name: "central"}
		_, err := s.Map(Apply(NewFluxOp(fd, false), &ExprArray{Components: []Expr{uq, u}}))
		assert.Error(t, err)
	}
	// agreeing quadrature flux operands select the quadrature flux
	{
		s := OperatorSpecializer{Types: TypeMap{
			uq: {Repr: Representation{Quad: ovsmp}},
			vq: {Repr: Representation{Quad: ovsmp}},
		}}
		fd := FluxDescriptor{Name: "central"}
		out, err := s.Map(Apply(NewFluxOp(fd, false), &ExprArray{Components: []Expr{uq, vq}}))
		assert.NoError(t, err)
		binding := out.(*OperatorBinding)
		qf, ok := binding.Op.(QuadFluxOp)
		assert.True(t, ok)
		assert.Equal(t, ovsmp, qf.Quad)
	}
}

func TestGlobalToReferenceMapper(t *testing.T) {
	var (
		u = NewVariable("u", dof.DDVolume)
		m = NewGlobalToReferenceMapper(2)
	)
	// mass picks up the area element
	{
		out := m.Map(Apply(NewMassOp(), u))
		want := Apply(NewRefMassOp(dof.DDVolume, dof.DDVolume),
			NewProduct(NewAreaElement(2, 2, dof.DDVolume), u))
		assert.Equal(t, want.String(), out.String())
	}
	// inverse mass divides by the area element
	{
		out := m.Map(Apply(NewInverseMassOp(), u))
		want := Apply(NewRefInverseMassOp(dof.DDVolume, dof.DDVolume),
			NewProduct(&Quotient{Num: NewConstant(1), Den: NewAreaElement(2, 2, dof.DDVolume)}, u))
		assert.Equal(t, want.String(), out.String())
	}
	// a physical derivative becomes a metric-weighted reference sum
	{
		out := m.Map(Apply(NewDiffOp(0), u))
		sum, ok := out.(*Sum)
		assert.True(t, ok)
		assert.Len(t, sum.Children, 2)
		for rst, term := range sum.Children {
			prod := term.(*Product)
			im := prod.Children[0].(*InverseMetricDerivative)
			assert.Equal(t, rst, im.RstAxis)
			assert.Equal(t, 0, im.XYZAxis)
			ref := prod.Children[1].(*OperatorBinding).Op.(RefDiffOp)
			assert.Equal(t, rst, ref.RstAxis)
		}
	}
	// fused inverse-mass stiffness-transpose splits and lowers both halves
	{
		out := m.Map(Apply(NewMInvSTOp(1), u))
		binding, ok := out.(*OperatorBinding)
		assert.True(t, ok)
		_, isRefInv := binding.Op.(RefInverseMassOp)
		assert.True(t, isRefInv)
	}
	// face mass flips the surface Jacobian sign
	{
		w := NewVariable("w", dof.DDAllFaces)
		out := m.Map(Apply(NewFaceMassOp(), w))
		assert.Contains(t, out.String(), "-1*Jac[2,1]")
	}
}

func TestConstantFolder(t *testing.T) {
	var (
		u = NewVariable("u", dof.DDVolume)
		f = CommutativeConstantFolder{}
	)
	// a zero operand annihilates the operator application
	{
		expr := NewSum(Apply(NewMassOp(), NewConstant(0)), u)
		folded := f.Map(expr)
		assert.Same(t, Expr(u), folded)
		// folding is idempotent
		assert.Same(t, folded, f.Map(folded))
	}
	// constants combine across a sum
	{
		folded := f.Map(&Sum{Children: []Expr{NewConstant(2), NewConstant(3), u}})
		sum := folded.(*Sum)
		assert.Len(t, sum.Children, 2)
		assert.Equal(t, 5., sum.Children[1].(*Constant).Value)
	}
	// a zero factor collapses the whole product
	{
		folded := f.Map(&Product{Children: []Expr{u, NewConstant(0)}})
		assert.True(t, IsZero(folded))
	}
}

type stubMesh struct{}

func (stubMesh) IsBoundaryTagEmpty(tag dof.DomainTag) bool { return tag.Name == dof.BTagNone }

func TestEmptyFluxKiller(t *testing.T) {
	var (
		u  = NewVariable("u", dof.DDVolume)
		fd = FluxDescriptor{Name: "central"}
		k  = EmptyFluxKiller{Mesh: stubMesh{}}
	)
	pair := &BoundaryPair{Field: u, BField: NewConstant(0), Tag: dof.BoundaryTag(dof.BTagNone)}
	killed := k.Map(Apply(NewBoundaryFluxOp(fd, dof.BoundaryTag(dof.BTagNone), false), pair))
	assert.True(t, IsZero(killed))

	kept := k.Map(Apply(NewBoundaryFluxOp(fd, dof.BoundaryTag("inflow"), false), pair))
	assert.False(t, IsZero(kept))
}

func TestDerivativeJoiner(t *testing.T) {
	var (
		u = NewVariable("u", dof.DDVolume)
		v = NewVariable("v", dof.DDVolume)
		j = DerivativeJoiner{}
	)
	// same-axis derivatives join
	{
		expr := NewSum(Apply(NewDiffOp(0), u), Apply(NewDiffOp(0), v))
		out := j.Map(expr)
		assert.Equal(t, Apply(NewDiffOp(0), NewSum(u, v)).String(), out.String())
	}
	// scalar prefactors migrate into the joined operand
	{
		expr := NewSum(
			Apply(NewDiffOp(0), u),
			NewProduct(NewConstant(2), Apply(NewDiffOp(0), v)))
		out := j.Map(expr)
		assert.Equal(t,
			Apply(NewDiffOp(0), NewSum(u, NewProduct(NewConstant(2), v))).String(),
			out.String())
	}
	// different axes stay separate, in first-seen order
	{
		expr := NewSum(Apply(NewDiffOp(1), u), Apply(NewDiffOp(0), v))
		out := j.Map(expr).(*Sum)
		assert.Len(t, out.Children, 2)
		assert.Equal(t, 1, out.Children[0].(*OperatorBinding).Op.(DiffOp).XYZAxis)
		assert.Equal(t, 0, out.Children[1].(*OperatorBinding).Op.(DiffOp).XYZAxis)
	}
}

func TestInverseMassContractor(t *testing.T) {
	var (
		u = NewVariable("u", dof.DDVolume)
		w = NewVariable("w", dof.DDIntFaces)
		c = InverseMassContractor{}
	)
	// M^-1(M(u)) cancels to the raw field
	{
		out := c.Map(Apply(NewInverseMassOp(), Apply(NewMassOp(), u)))
		assert.Same(t, Expr(u), out)
	}
	// M^-1(StiffT(u)) fuses
	{
		out := c.Map(Apply(NewInverseMassOp(), Apply(NewStiffnessTOp(0), u)))
		assert.Equal(t, Apply(NewMInvSTOp(0), u).String(), out.String())
	}
	// M^-1(Stiff(u)) collapses to the plain derivative
	{
		out := c.Map(Apply(NewInverseMassOp(), Apply(NewStiffnessOp(1), u)))
		assert.Equal(t, Apply(NewDiffOp(1), u).String(), out.String())
	}
	// M^-1(Flux(w)) becomes a lifted flux
	{
		fd := FluxDescriptor{Name: "central"}
		out := c.Map(Apply(NewInverseMassOp(), Apply(NewFluxOp(fd, false), w)))
		binding := out.(*OperatorBinding)
		assert.True(t, binding.Op.(FluxOp).IsLift)
	}
	// a push-down costing two residual applications is abandoned
	{
		expr := Apply(NewInverseMassOp(),
			NewSum(Apply(NewDiffOp(0), u), Apply(NewDiffOp(1), u)))
		out := c.Map(expr)
		assert.Equal(t, expr.String(), out.String())

		// raising the threshold lets it through
		loose := InverseMassContractor{ExtraOperatorThreshold: 2}
		_, isSum := loose.Map(expr).(*Sum)
		assert.True(t, isSum)
	}
}

func TestQuadratureUpsamplerRemover(t *testing.T) {
	var (
		ovsmp = dof.QuadTag("OVSMP")
		u     = NewVariable("u", dof.DDVolume)
		expr  = Apply(NewQuadGridUpsamplerOp(ovsmp), u)
	)
	// unknown tag falls back to nodal with a warning
	{
		var warned string
		saved := Warnf
		Warnf = func(format string, args ...interface{}) {
			warned = fmt.Sprintf(format, args...)
		}
		defer func() { Warnf = saved }()

		out := NewQuadratureUpsamplerRemover(nil).Map(expr)
		assert.Same(t, Expr(u), out)
		assert.Contains(t, warned, "OVSMP")
	}
	// known tag keeps the upsampler
	{
		r := NewQuadratureUpsamplerRemover(map[dof.QuadTag]int{ovsmp: 8})
		assert.Same(t, expr, r.Map(expr))
	}
}

func TestQuadratureDetector(t *testing.T) {
	var (
		ovsmp = dof.QuadTag("OVSMP")
		u     = NewVariable("u", dof.DDVolume)
		uq    = NewVariable("uq", dof.Volume(ovsmp))
		vq    = NewVariable("vq", dof.Volume(ovsmp))
		d     = QuadratureDetector{}
	)
	// agreeing operands determine the grid
	{
		tag, known, err := d.Detect(NewProduct(uq, vq))
		assert.NoError(t, err)
		assert.True(t, known)
		assert.Equal(t, ovsmp, tag)
	}
	// constants place no constraint
	{
		tag, known, err := d.Detect(NewProduct(NewConstant(2), u))
		assert.NoError(t, err)
		assert.True(t, known)
		assert.Equal(t, dof.QTagNone, tag)
	}
	// operator output resets to nodal
	{
		tag, known, err := d.Detect(Apply(NewQuadMassOp(ovsmp), uq))
		assert.NoError(t, err)
		assert.True(t, known)
		assert.Equal(t, dof.QTagNone, tag)
	}
	// disagreement is an error
	{
		_, _, err := d.Detect(NewProduct(uq, u))
		assert.Error(t, err)
	}
}

func TestAnalysis(t *testing.T) {
	var (
		u  = NewVariable("u", dof.DDVolume)
		v  = NewVariable("v", dof.DDVolume)
		tm = &ScalarParameter{Name: "t"}
	)
	// dependencies come back deduplicated and ordered
	{
		deps := DependencyMapper{}.Dependencies(NewSum(NewProduct(tm, v), u, v))
		assert.Len(t, deps, 3)
		assert.Same(t, Expr(tm), deps[0])
		assert.Same(t, Expr(u), deps[1])
		assert.Same(t, Expr(v), deps[2])
	}
	// composite leaves stop at operator bindings
	{
		deps := DependencyMapper{CompositeLeaves: true}.
			Dependencies(NewSum(Apply(NewMassOp(), u), v))
		assert.Len(t, deps, 2)
	}
	// flop count covers scalar arithmetic only
	{
		count := FlopCounter{}.Count(NewSum(u, NewProduct(NewConstant(2), v)))
		assert.Equal(t, 2, count)
	}
	// differentiating along a missing axis is caught early
	{
		checker := ErrorChecker{Dim: 2}
		assert.NoError(t, checker.Check(Apply(NewDiffOp(1), u)))
		assert.Error(t, checker.Check(Apply(NewDiffOp(2), u)))
	}
}
