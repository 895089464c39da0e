package dg

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/notargets/godg/utils"
)

// {{{ cache

type matrixKind uint8

const (
	matMass matrixKind = iota
	matInvMass
	matDeriv
	matStiffT
	matFaceMass
)

// matrixKey identifies one reference matrix by the discretization keys of
// the group pair, so equal-content groups hit the same cache entry.
type matrixKey struct {
	kind    matrixKind
	out, in string
	axis    int
}

func pairKey(kind matrixKind, out, in *ElementGroup) matrixKey {
	return matrixKey{
		kind: kind,
		out:  out.DiscretizationKey(),
		in:   in.DiscretizationKey(),
	}
}

type cacheEntry struct {
	done chan struct{}
	val  interface{}
	ok   bool
}

// matrixCache memoizes reference matrices per group pair. A key is computed
// at most once no matter how many goroutines race for it: the first caller
// installs an in-flight entry and the rest wait on it. A compute that
// panics is not memoized; its entry is removed so a later caller retries.
type matrixCache struct {
	mu      sync.Mutex
	entries map[matrixKey]*cacheEntry
}

func (c *matrixCache) get(key matrixKey, compute func() interface{}) interface{} {
	for {
		c.mu.Lock()
		if c.entries == nil {
			c.entries = make(map[matrixKey]*cacheEntry)
		}
		if e, exists := c.entries[key]; exists {
			c.mu.Unlock()
			<-e.done
			if e.ok {
				return e.val
			}
			continue
		}
		e := &cacheEntry{done: make(chan struct{})}
		c.entries[key] = e
		c.mu.Unlock()

		func() {
			defer func() {
				if !e.ok {
					c.mu.Lock()
					delete(c.entries, key)
					c.mu.Unlock()
				}
				close(e.done)
			}()
			e.val = compute()
			e.ok = true
		}()
		return e.val
	}
}

// }}}

// {{{ reference matrices

// refMass is the reference mass matrix pairing the output group's nodal
// space against the input group. Same-group it is (V V^T)^-1; against a
// quadrature group it is the nodal quadrature bilinear form
// M[i,j] = w[j] * sum_k Vinv^T[i,k] * Vq[j,k].
func (c *Context) refMass(out, in *ElementGroup) utils.Matrix {
	return c.matrices.get(pairKey(matMass, out, in),
		func() interface{} {
			V := out.Vandermonde()
			if in.DiscretizationKey() == out.DiscretizationKey() {
				return V.Mul(V.Transpose()).Inverse()
			}
			if in.ExactTo < out.Order+in.Order {
				panic(errors.Errorf(
					"quadrature rule (exact to %d) cannot integrate mass pairing "+
						"of degrees %d and %d", in.ExactTo, out.Order, in.Order))
			}
			var (
				VinvT = V.Inverse().Transpose()
				Vq    = in.Basis.VandermondeAt(in.Nodes)
				W     = in.Weights.ToDiagMatrix()
			)
			return VinvT.Mul(Vq.Transpose()).Mul(W)
		}).(utils.Matrix)
}

// refInverseMass is the exact inverse of the same-group mass matrix, V V^T.
func (c *Context) refInverseMass(grp *ElementGroup) utils.Matrix {
	return c.matrices.get(pairKey(matInvMass, grp, grp),
		func() interface{} {
			V := grp.Vandermonde()
			return V.Mul(V.Transpose())
		}).(utils.Matrix)
}

// refDeriv is the nodal differentiation matrix along one reference axis,
// Dr = GradV V^-1.
func (c *Context) refDeriv(grp *ElementGroup, rstAxis int) utils.Matrix {
	key := pairKey(matDeriv, grp, grp)
	key.axis = rstAxis
	return c.matrices.get(key,
		func() interface{} {
			var (
				V     = grp.Vandermonde()
				gradV = grp.Basis.GradVandermondeAt(grp.Nodes)
			)
			return gradV[rstAxis].Mul(V.Inverse())
		}).(utils.Matrix)
}

// refStiffnessT is the transposed stiffness matrix along one reference
// axis: same-group (M Dr)^T, or the quadrature bilinear form against a
// quadrature input group.
func (c *Context) refStiffnessT(out, in *ElementGroup, rstAxis int) utils.Matrix {
	key := pairKey(matStiffT, out, in)
	key.axis = rstAxis
	return c.matrices.get(key,
		func() interface{} {
			if in.DiscretizationKey() == out.DiscretizationKey() {
				var (
					M = c.refMass(out, out)
					D = c.refDeriv(out, rstAxis)
				)
				return D.Transpose().Mul(M)
			}
			if in.ExactTo < out.Order+in.Order {
				panic(errors.Errorf(
					"quadrature rule (exact to %d) cannot integrate stiffness pairing "+
						"of degrees %d and %d", in.ExactTo, out.Order, in.Order))
			}
			var (
				VinvT  = out.Vandermonde().Inverse().Transpose()
				gradVq = in.Basis.GradVandermondeAt(in.Nodes)
				W      = in.Weights.ToDiagMatrix()
			)
			return VinvT.Mul(gradVq[rstAxis].Transpose()).Mul(W)
		}).(utils.Matrix)
}

// refFaceMass returns one Np x Nfp matrix per face of the volume element,
// lifting face data into the volume nodal space. Quadrature face groups use
// their weights directly and need only integrate their own space exactly;
// nodal face groups use the exact face mass of their own basis, which must
// cover the restricted volume polynomials.
func (c *Context) refFaceMass(face, vol *ElementGroup) []utils.Matrix {
	if face.NumElements != face.NumFaces*vol.NumElements {
		panic(errors.Errorf(
			"face group has %d elements, want %d faces x %d volume elements",
			face.NumElements, face.NumFaces, vol.NumElements))
	}
	return c.matrices.get(pairKey(matFaceMass, vol, face),
		func() interface{} {
			if face.Quadrature {
				if face.ExactTo < face.Order {
					panic(errors.Errorf(
						"face quadrature rule (exact to %d) cannot integrate its own "+
							"degree %d space", face.ExactTo, face.Order))
				}
			} else if face.Basis.Degree() < vol.Order {
				panic(errors.Errorf(
					"face basis of degree %d cannot represent restrictions of "+
						"volume polynomials of degree %d",
					face.Basis.Degree(), vol.Order))
			}

			Vinv := vol.Vandermonde().Inverse()
			mats := make([]utils.Matrix, face.NumFaces)
			for f := range mats {
				// interpolation from volume nodes to this face's nodes
				interp := vol.Basis.VandermondeAt(face.FaceNodes[f]).Mul(Vinv)
				if face.Quadrature {
					mats[f] = interp.Transpose().Mul(face.Weights.ToDiagMatrix())
				} else {
					Vf := face.Vandermonde()
					faceMass := Vf.Mul(Vf.Transpose()).Inverse()
					mats[f] = interp.Transpose().Mul(faceMass)
				}
			}
			return mats
		}).([]utils.Matrix)
}

// }}}
