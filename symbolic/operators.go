package symbolic

import (
	"fmt"

	"github.com/notargets/godg/dof"
)

// Operator is one variant of the closed operator set. Operators are
// comparable value types so they can serve as map keys, and they are
// expression nodes so they can appear unbound inside a product before the
// OperatorBinder has run.
type Operator interface {
	Expr
	DDIn() dof.DofDesc
	DDOut() dof.DofDesc
}

// opDDs carries the input/output domain descriptors common to all operators.
type opDDs struct {
	In, Out dof.DofDesc
}

func (d opDDs) DDIn() dof.DofDesc  { return d.In }
func (d opDDs) DDOut() dof.DofDesc { return d.Out }
func (opDDs) isExpr()              {}

func (d opDDs) ddString() string {
	return "[" + d.In.String() + "->" + d.Out.String() + "]"
}

func volToVol() opDDs { return opDDs{In: dof.DDVolume, Out: dof.DDVolume} }

// FluxDescriptor names a numerical flux. The rewrite pipeline treats fluxes
// opaquely; evaluation of the flux itself happens in driver code from trace
// pairs.
type FluxDescriptor struct {
	Name string
}

func (f FluxDescriptor) String() string { return f.Name }

// {{{ global differentiation family

type DiffOp struct {
	XYZAxis int
	opDDs
}

func NewDiffOp(xyzAxis int) DiffOp { return DiffOp{XYZAxis: xyzAxis, opDDs: volToVol()} }

func (o DiffOp) String() string { return fmt.Sprintf("Diffx%d%s", o.XYZAxis, o.ddString()) }

type StiffnessOp struct {
	XYZAxis int
	opDDs
}

func NewStiffnessOp(xyzAxis int) StiffnessOp {
	return StiffnessOp{XYZAxis: xyzAxis, opDDs: volToVol()}
}

func (o StiffnessOp) String() string { return fmt.Sprintf("Stiffx%d%s", o.XYZAxis, o.ddString()) }

type StiffnessTOp struct {
	XYZAxis int
	opDDs
}

func NewStiffnessTOp(xyzAxis int) StiffnessTOp {
	return StiffnessTOp{XYZAxis: xyzAxis, opDDs: volToVol()}
}

func NewStiffnessTOpOnDD(xyzAxis int, ddIn dof.DofDesc) StiffnessTOp {
	return StiffnessTOp{XYZAxis: xyzAxis, opDDs: opDDs{In: ddIn, Out: dof.DDVolume}}
}

func (o StiffnessTOp) String() string { return fmt.Sprintf("StiffTx%d%s", o.XYZAxis, o.ddString()) }

// MInvSTOp is inverse mass applied to stiffness-transpose, kept as a single
// operator until the global-to-reference lowering splits it.
type MInvSTOp struct {
	XYZAxis int
	opDDs
}

func NewMInvSTOp(xyzAxis int) MInvSTOp { return MInvSTOp{XYZAxis: xyzAxis, opDDs: volToVol()} }

func (o MInvSTOp) String() string { return fmt.Sprintf("MInvSTx%d%s", o.XYZAxis, o.ddString()) }

type QuadStiffnessTOp struct {
	XYZAxis int
	Quad    dof.QuadTag
	opDDs
}

func NewQuadStiffnessTOp(xyzAxis int, quad dof.QuadTag) QuadStiffnessTOp {
	return QuadStiffnessTOp{
		XYZAxis: xyzAxis,
		Quad:    quad,
		opDDs:   opDDs{In: dof.Volume(quad), Out: dof.DDVolume},
	}
}

func (o QuadStiffnessTOp) String() string {
	return fmt.Sprintf("QStiffTx%d{%s}%s", o.XYZAxis, o.Quad, o.ddString())
}

// }}}

// {{{ reference differentiation family

type RefDiffOp struct {
	RstAxis int
	opDDs
}

func NewRefDiffOp(rstAxis int, ddIn dof.DofDesc) RefDiffOp {
	return RefDiffOp{RstAxis: rstAxis, opDDs: opDDs{In: ddIn, Out: ddIn}}
}

func (o RefDiffOp) String() string { return fmt.Sprintf("Diffr%d%s", o.RstAxis, o.ddString()) }

type RefStiffnessTOp struct {
	RstAxis int
	opDDs
}

func NewRefStiffnessTOp(rstAxis int, ddIn dof.DofDesc) RefStiffnessTOp {
	return RefStiffnessTOp{RstAxis: rstAxis, opDDs: opDDs{In: ddIn, Out: dof.DDVolume}}
}

func (o RefStiffnessTOp) String() string { return fmt.Sprintf("StiffTr%d%s", o.RstAxis, o.ddString()) }

type RefQuadStiffnessTOp struct {
	RstAxis int
	Quad    dof.QuadTag
	opDDs
}

func NewRefQuadStiffnessTOp(rstAxis int, quad dof.QuadTag) RefQuadStiffnessTOp {
	return RefQuadStiffnessTOp{
		RstAxis: rstAxis,
		Quad:    quad,
		opDDs:   opDDs{In: dof.Volume(quad), Out: dof.DDVolume},
	}
}

func (o RefQuadStiffnessTOp) String() string {
	return fmt.Sprintf("QStiffTr%d{%s}%s", o.RstAxis, o.Quad, o.ddString())
}

// }}}

// {{{ mass family

type MassOp struct {
	opDDs
}

func NewMassOp() MassOp { return MassOp{opDDs: volToVol()} }

func NewMassOpOnDD(ddIn dof.DofDesc) MassOp {
	return MassOp{opDDs: opDDs{In: ddIn, Out: dof.DDVolume}}
}

func (o MassOp) String() string { return "M" + o.ddString() }

type InverseMassOp struct {
	opDDs
}

func NewInverseMassOp() InverseMassOp { return InverseMassOp{opDDs: volToVol()} }

func (o InverseMassOp) String() string { return "InvM" + o.ddString() }

type QuadMassOp struct {
	Quad dof.QuadTag
	opDDs
}

func NewQuadMassOp(quad dof.QuadTag) QuadMassOp {
	return QuadMassOp{Quad: quad, opDDs: opDDs{In: dof.Volume(quad), Out: dof.DDVolume}}
}

func (o QuadMassOp) String() string { return fmt.Sprintf("QM{%s}%s", o.Quad, o.ddString()) }

type RefMassOp struct {
	opDDs
}

func NewRefMassOp(ddIn, ddOut dof.DofDesc) RefMassOp {
	return RefMassOp{opDDs: opDDs{In: ddIn, Out: ddOut}}
}

func (o RefMassOp) String() string { return "RefM" + o.ddString() }

type RefInverseMassOp struct {
	opDDs
}

func NewRefInverseMassOp(ddIn, ddOut dof.DofDesc) RefInverseMassOp {
	return RefInverseMassOp{opDDs: opDDs{In: ddIn, Out: ddOut}}
}

func (o RefInverseMassOp) String() string { return "RefInvM" + o.ddString() }

type RefQuadMassOp struct {
	Quad dof.QuadTag
	opDDs
}

func NewRefQuadMassOp(quad dof.QuadTag) RefQuadMassOp {
	return RefQuadMassOp{Quad: quad, opDDs: opDDs{In: dof.Volume(quad), Out: dof.DDVolume}}
}

func (o RefQuadMassOp) String() string { return fmt.Sprintf("RefQM{%s}%s", o.Quad, o.ddString()) }

// }}}

// {{{ face mass

type FaceMassOp struct {
	opDDs
}

func NewFaceMassOp() FaceMassOp {
	return FaceMassOp{opDDs: opDDs{In: dof.DDAllFaces, Out: dof.DDVolume}}
}

func NewFaceMassOpOnDD(ddIn dof.DofDesc) FaceMassOp {
	return FaceMassOp{opDDs: opDDs{In: ddIn, Out: dof.DDVolume}}
}

func (o FaceMassOp) String() string { return "FaceM" + o.ddString() }

type RefFaceMassOp struct {
	opDDs
}

func NewRefFaceMassOp(ddIn, ddOut dof.DofDesc) RefFaceMassOp {
	return RefFaceMassOp{opDDs: opDDs{In: ddIn, Out: ddOut}}
}

func (o RefFaceMassOp) String() string { return "RefFaceM" + o.ddString() }

// }}}

// {{{ flux family

type FluxOp struct {
	Flux   FluxDescriptor
	IsLift bool
	opDDs
}

func NewFluxOp(flux FluxDescriptor, isLift bool) FluxOp {
	return FluxOp{
		Flux:   flux,
		IsLift: isLift,
		opDDs:  opDDs{In: dof.DDIntFaces, Out: dof.DDVolume},
	}
}

func (o FluxOp) String() string { return fmt.Sprintf("Flux{%s}%s", o.Flux, o.ddString()) }

type BoundaryFluxOp struct {
	Flux   FluxDescriptor
	BTag   dof.DomainTag
	IsLift bool
	opDDs
}

func NewBoundaryFluxOp(flux FluxDescriptor, btag dof.DomainTag, isLift bool) BoundaryFluxOp {
	return BoundaryFluxOp{
		Flux:   flux,
		BTag:   btag,
		IsLift: isLift,
		opDDs:  opDDs{In: dof.DofDesc{Domain: btag}, Out: dof.DDVolume},
	}
}

func (o BoundaryFluxOp) String() string {
	return fmt.Sprintf("BFlux{%s,%s}%s", o.Flux, o.BTag, o.ddString())
}

type QuadFluxOp struct {
	Flux FluxDescriptor
	Quad dof.QuadTag
	opDDs
}

func NewQuadFluxOp(flux FluxDescriptor, quad dof.QuadTag) QuadFluxOp {
	return QuadFluxOp{
		Flux:  flux,
		Quad:  quad,
		opDDs: opDDs{In: dof.DDIntFaces.WithQuad(quad), Out: dof.DDVolume},
	}
}

func (o QuadFluxOp) String() string {
	return fmt.Sprintf("QFlux{%s,%s}%s", o.Flux, o.Quad, o.ddString())
}

type QuadBoundaryFluxOp struct {
	Flux FluxDescriptor
	Quad dof.QuadTag
	BTag dof.DomainTag
	opDDs
}

func NewQuadBoundaryFluxOp(flux FluxDescriptor, quad dof.QuadTag, btag dof.DomainTag) QuadBoundaryFluxOp {
	return QuadBoundaryFluxOp{
		Flux:  flux,
		Quad:  quad,
		BTag:  btag,
		opDDs: opDDs{In: dof.DofDesc{Domain: btag, Quad: quad}, Out: dof.DDVolume},
	}
}

func (o QuadBoundaryFluxOp) String() string {
	return fmt.Sprintf("QBFlux{%s,%s,%s}%s", o.Flux, o.Quad, o.BTag, o.ddString())
}

// }}}

// {{{ quadrature upsamplers, restriction, interpolation

type QuadGridUpsamplerOp struct {
	Quad dof.QuadTag
	opDDs
}

func NewQuadGridUpsamplerOp(quad dof.QuadTag) QuadGridUpsamplerOp {
	return QuadGridUpsamplerOp{
		Quad:  quad,
		opDDs: opDDs{In: dof.DDVolume, Out: dof.Volume(quad)},
	}
}

func (o QuadGridUpsamplerOp) String() string {
	return fmt.Sprintf("QUpsample{%s}%s", o.Quad, o.ddString())
}

type QuadInteriorFacesGridUpsamplerOp struct {
	Quad dof.QuadTag
	opDDs
}

func NewQuadInteriorFacesGridUpsamplerOp(quad dof.QuadTag) QuadInteriorFacesGridUpsamplerOp {
	return QuadInteriorFacesGridUpsamplerOp{
		Quad:  quad,
		opDDs: opDDs{In: dof.DDIntFaces, Out: dof.DDIntFaces.WithQuad(quad)},
	}
}

func (o QuadInteriorFacesGridUpsamplerOp) String() string {
	return fmt.Sprintf("QIntFacesUpsample{%s}%s", o.Quad, o.ddString())
}

type QuadBoundaryGridUpsamplerOp struct {
	Quad dof.QuadTag
	BTag dof.DomainTag
	opDDs
}

func NewQuadBoundaryGridUpsamplerOp(quad dof.QuadTag, btag dof.DomainTag) QuadBoundaryGridUpsamplerOp {
	return QuadBoundaryGridUpsamplerOp{
		Quad: quad,
		BTag: btag,
		opDDs: opDDs{
			In:  dof.DofDesc{Domain: btag},
			Out: dof.DofDesc{Domain: btag, Quad: quad},
		},
	}
}

func (o QuadBoundaryGridUpsamplerOp) String() string {
	return fmt.Sprintf("QBdryUpsample{%s,%s}%s", o.Quad, o.BTag, o.ddString())
}

type RestrictToBoundaryOp struct {
	BTag dof.DomainTag
	opDDs
}

func NewRestrictToBoundaryOp(btag dof.DomainTag) RestrictToBoundaryOp {
	return RestrictToBoundaryOp{
		BTag:  btag,
		opDDs: opDDs{In: dof.DDVolume, Out: dof.DofDesc{Domain: btag}},
	}
}

func (o RestrictToBoundaryOp) String() string {
	return fmt.Sprintf("ToBdry{%s}%s", o.BTag, o.ddString())
}

// InterpolationOp projects between two discretizations of the same mesh.
type InterpolationOp struct {
	opDDs
}

func NewInterpolationOp(ddIn, ddOut dof.DofDesc) InterpolationOp {
	return InterpolationOp{opDDs: opDDs{In: ddIn, Out: ddOut}}
}

func (o InterpolationOp) String() string { return "Interp" + o.ddString() }

type OppositeInteriorFaceSwapOp struct {
	opDDs
}

func NewOppositeInteriorFaceSwapOp() OppositeInteriorFaceSwapOp {
	return OppositeInteriorFaceSwapOp{opDDs: opDDs{In: dof.DDIntFaces, Out: dof.DDIntFaces}}
}

func (o OppositeInteriorFaceSwapOp) String() string { return "OppSwap" + o.ddString() }

// }}}

// {{{ nodal reductions

type NodalReductionKind uint8

const (
	NodalSum NodalReductionKind = iota
	NodalMin
	NodalMax
)

type NodalReductionOp struct {
	Kind NodalReductionKind
	opDDs
}

func NewNodalReductionOp(kind NodalReductionKind, dd dof.DofDesc) NodalReductionOp {
	return NodalReductionOp{Kind: kind, opDDs: opDDs{In: dd, Out: dof.DDScalar}}
}

func (o NodalReductionOp) String() string {
	switch o.Kind {
	case NodalSum:
		return "NodalSum" + o.ddString()
	case NodalMin:
		return "NodalMin" + o.ddString()
	default:
		return "NodalMax" + o.ddString()
	}
}

// }}}

// {{{ variant classification (the reducer-mixin groupings as predicates)

// IsDiffBase reports membership in the global differentiation family.
func IsDiffBase(op Operator) bool {
	switch op.(type) {
	case DiffOp, StiffnessOp, StiffnessTOp, MInvSTOp, QuadStiffnessTOp:
		return true
	}
	return false
}

// IsRefDiffBase reports membership in the reference differentiation family.
func IsRefDiffBase(op Operator) bool {
	switch op.(type) {
	case RefDiffOp, RefStiffnessTOp, RefQuadStiffnessTOp:
		return true
	}
	return false
}

// IsMassBase reports membership in the global mass family.
func IsMassBase(op Operator) bool {
	switch op.(type) {
	case MassOp, InverseMassOp, QuadMassOp:
		return true
	}
	return false
}

// IsFluxBase reports membership in the flux family.
func IsFluxBase(op Operator) bool {
	switch op.(type) {
	case FluxOp, BoundaryFluxOp, QuadFluxOp, QuadBoundaryFluxOp:
		return true
	}
	return false
}

// IsUpsampler reports whether op moves a field onto a quadrature grid.
func IsUpsampler(op Operator) bool {
	switch op.(type) {
	case QuadGridUpsamplerOp, QuadInteriorFacesGridUpsamplerOp, QuadBoundaryGridUpsamplerOp:
		return true
	}
	return false
}

// UpsamplerQuadTag returns the quadrature tag carried by an upsampler.
func UpsamplerQuadTag(op Operator) dof.QuadTag {
	switch o := op.(type) {
	case QuadGridUpsamplerOp:
		return o.Quad
	case QuadInteriorFacesGridUpsamplerOp:
		return o.Quad
	case QuadBoundaryGridUpsamplerOp:
		return o.Quad
	}
	panic(fmt.Errorf("operator %v is not a quadrature upsampler", op))
}

// DiffAxis returns the physical axis of a global differentiation operator.
func DiffAxis(op Operator) int {
	switch o := op.(type) {
	case DiffOp:
		return o.XYZAxis
	case StiffnessOp:
		return o.XYZAxis
	case StiffnessTOp:
		return o.XYZAxis
	case MInvSTOp:
		return o.XYZAxis
	case QuadStiffnessTOp:
		return o.XYZAxis
	}
	panic(fmt.Errorf("operator %v has no differentiation axis", op))
}

// }}}
