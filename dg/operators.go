package dg

import (
	"github.com/pkg/errors"

	"github.com/notargets/godg/dof"
	"github.com/notargets/godg/utils"
)

// The elementwise operators below act group-by-group: group i of the input
// discretization pairs with group i of the nodal volume discretization.

func (c *Context) pairGroups(ddIn dof.DofDesc) (vol, in *Discretization) {
	vol = c.mustDiscr(dof.DDVolume)
	in = c.mustDiscr(ddIn)
	if len(vol.Groups) != len(in.Groups) {
		panic(errors.Errorf(
			"group count mismatch between %s (%d) and %s (%d)",
			dof.DDVolume, len(vol.Groups), ddIn, len(in.Groups)))
	}
	return
}

// Mass applies the metric-weighted mass operator, M (jac o v), mapping data
// on ddIn (nodal or quadrature) into the nodal volume space.
func (c *Context) Mass(ddIn dof.DofDesc, f Field) Field {
	return mapUnary(f, func(v *DOFArray) *DOFArray {
		var (
			vol, in = c.pairGroups(ddIn)
			jac     = c.areaElement(ddIn, c.Provider.Dim())
			out     = vol.Zeros()
		)
		for g := range vol.Groups {
			M := c.refMass(vol.Groups[g], in.Groups[g])
			out.Data[g] = M.Mul(jac.Data[g].Copy().ElMul(v.Data[g]))
		}
		return out
	})
}

// InverseMass inverts the metric-weighted mass operator on the nodal volume
// space. On affine meshes this is exact; otherwise the weight-adjusted
// approximate inverse Minv M (1/jac o (Minv v)) is used.
func (c *Context) InverseMass(dd dof.DofDesc, f Field) Field {
	if dd.UsesQuadrature() {
		panic(errors.New("inverse mass is not defined on quadrature grids"))
	}
	return mapUnary(f, func(v *DOFArray) *DOFArray {
		var (
			discr = c.mustDiscr(dd)
			jac   = c.areaElement(dd, c.Provider.Dim())
			out   = discr.Zeros()
		)
		for g, grp := range discr.Groups {
			Minv := c.refInverseMass(grp)
			if c.Provider.IsAffine() {
				out.Data[g] = Minv.Mul(v.Data[g]).ElDiv(jac.Data[g])
			} else {
				M := c.refMass(grp, grp)
				inner := Minv.Mul(v.Data[g]).ElDiv(jac.Data[g])
				out.Data[g] = Minv.Mul(M.Mul(inner))
			}
		}
		return out
	})
}

// FaceMass integrates face data against the volume basis,
// out[e,i] = sum_f sum_j mat[i,f,j] jacS[f,e,j] v[f,e,j].
func (c *Context) FaceMass(ddIn dof.DofDesc, f Field) Field {
	return mapUnary(f, func(v *DOFArray) *DOFArray {
		var (
			vol, in = c.pairGroups(ddIn)
			jacS    = c.areaElement(ddIn, c.Provider.Dim()-1)
			out     = vol.Zeros()
		)
		for g := range vol.Groups {
			var (
				volGrp  = vol.Groups[g]
				faceGrp = in.Groups[g]
				mats    = c.refFaceMass(faceGrp, volGrp)
				K       = volGrp.NumElements
			)
			for iface := 0; iface < faceGrp.NumFaces; iface++ {
				cols := utils.NewRange(iface*K, (iface+1)*K-1)
				vf := v.Data[g].SliceCols(cols)
				jf := jacS.Data[g].SliceCols(cols)
				out.Data[g].Add(mats[iface].Mul(jf.ElMul(vf)))
			}
		}
		return out
	})
}

// DDX is the strong derivative along one physical axis,
// sum_rst invmetric[rst,xyz] o (Dr_rst v).
func (c *Context) DDX(xyzAxis int, f Field) Field {
	return mapUnary(f, func(v *DOFArray) *DOFArray {
		var (
			discr = c.mustDiscr(dof.DDVolume)
			out   = discr.Zeros()
		)
		for g, grp := range discr.Groups {
			for rst := 0; rst < c.Provider.Dim(); rst++ {
				im := c.inverseMetric(dof.DDVolume, rst, xyzAxis)
				out.Data[g].Add(c.refDeriv(grp, rst).Mul(v.Data[g]).ElMul(im.Data[g]))
			}
		}
		return out
	})
}

// LocalGrad is the strong gradient, one component per ambient axis.
func (c *Context) LocalGrad(f Field) FieldArray {
	out := make(FieldArray, c.Provider.AmbientDim())
	for axis := range out {
		out[axis] = c.DDX(axis, f)
	}
	return out
}

// LocalDiv is the strong divergence of a vector field.
func (c *Context) LocalDiv(f FieldArray) Field {
	if len(f) != c.Provider.AmbientDim() {
		panic(errors.Errorf("divergence needs %d components, got %d",
			c.Provider.AmbientDim(), len(f)))
	}
	out := Field(Scalar(0))
	for axis, comp := range f {
		out = Add(out, c.DDX(axis, comp))
	}
	return out
}

// WeakDDX is the weak derivative along one physical axis,
// sum_rst StiffT_rst (invmetric[rst,xyz] o jac o v), taking data on ddIn.
func (c *Context) WeakDDX(ddIn dof.DofDesc, xyzAxis int, f Field) Field {
	return mapUnary(f, func(v *DOFArray) *DOFArray {
		var (
			vol, in = c.pairGroups(ddIn)
			jac     = c.areaElement(ddIn, c.Provider.Dim())
			out     = vol.Zeros()
		)
		for g := range vol.Groups {
			weighted := jac.Data[g].Copy().ElMul(v.Data[g])
			for rst := 0; rst < c.Provider.Dim(); rst++ {
				var (
					im = c.inverseMetric(ddIn, rst, xyzAxis)
					St = c.refStiffnessT(vol.Groups[g], in.Groups[g], rst)
				)
				out.Data[g].Add(St.Mul(im.Data[g].Copy().ElMul(weighted)))
			}
		}
		return out
	})
}

// WeakLocalGrad is the weak gradient, one component per ambient axis.
func (c *Context) WeakLocalGrad(ddIn dof.DofDesc, f Field) FieldArray {
	out := make(FieldArray, c.Provider.AmbientDim())
	for axis := range out {
		out[axis] = c.WeakDDX(ddIn, axis, f)
	}
	return out
}

// WeakLocalDiv is the weak divergence of a vector field on ddIn.
func (c *Context) WeakLocalDiv(ddIn dof.DofDesc, f FieldArray) Field {
	if len(f) != c.Provider.AmbientDim() {
		panic(errors.Errorf("divergence needs %d components, got %d",
			c.Provider.AmbientDim(), len(f)))
	}
	out := Field(Scalar(0))
	for axis, comp := range f {
		out = Add(out, c.WeakDDX(ddIn, axis, comp))
	}
	return out
}
