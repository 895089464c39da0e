package boxgrid

import "github.com/james-bowman/sparse"

// strides returns the element index stride per axis for a lexicographic
// numbering with axis 0 fastest.
func strides(k []int) []int {
	s := make([]int, len(k))
	acc := 1
	for a, ka := range k {
		s[a] = acc
		acc *= ka
	}
	return s
}

func elemCoords(e int, k []int) []int {
	i := make([]int, len(k))
	for a, ka := range k {
		i[a] = e % ka
		e /= ka
	}
	return i
}

// faceNeighbors pairs the faces of a structured box of k[0] x k[1] x ...
// elements. Faces are numbered 2*axis (low side) and 2*axis+1 (high side);
// the result maps global face id elem*2*dim+face to the matching face id of
// the neighboring element, or -1 on the domain boundary. The pairing runs
// through a face-to-plane incidence matrix: two faces share a lattice plane
// exactly when their incidence rows have unit dot product.
func faceNeighbors(k []int) []int {
	var (
		dim    = len(k)
		nfaces = 2 * dim
		K      = 1
	)
	for _, ka := range k {
		K *= ka
	}

	// plane id layout: per axis, (k[a]+1) planes times the transverse cell
	// count, offset by the planes of earlier axes
	offset := make([]int, dim+1)
	for a := 0; a < dim; a++ {
		offset[a+1] = offset[a] + (k[a]+1)*(K/k[a])
	}
	planeID := func(e, face int) int {
		var (
			axis  = face / 2
			side  = face % 2
			i     = elemCoords(e, k)
			plane = i[axis] + side
			t     = 0
			tMul  = 1
		)
		for b := 0; b < dim; b++ {
			if b == axis {
				continue
			}
			t += i[b] * tMul
			tMul *= k[b]
		}
		return offset[axis] + plane + (k[axis]+1)*t
	}

	totalFaces := K * nfaces
	SpFToV := sparse.NewDOK(totalFaces, offset[dim])
	for e := 0; e < K; e++ {
		for f := 0; f < nfaces; f++ {
			SpFToV.Set(e*nfaces+f, planeID(e, f), 1)
		}
	}
	var (
		FToV = SpFToV.ToCSR()
		FToF = sparse.NewCSR(totalFaces, totalFaces, nil, nil, nil)
	)
	FToF.Mul(FToV, FToV.T())

	neighbor := make([]int, totalFaces)
	for i := range neighbor {
		neighbor[i] = -1
	}
	FToF.DoNonZero(func(i, j int, v float64) {
		if i != j && v == 1 {
			neighbor[i] = j
		}
	})
	return neighbor
}
