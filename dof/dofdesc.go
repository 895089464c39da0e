// Package dof identifies discretization regions: a domain tag (volume, a
// named boundary, interior faces, all faces, or scalar) crossed with a
// quadrature tag (empty for nodal, or the name of a quadrature rule).
package dof

import "fmt"

type DomainKind uint8

const (
	DomainVolume DomainKind = iota
	DomainScalar
	DomainAllFaces
	DomainInteriorFaces
	DomainBoundary
)

// DomainTag is a comparable value identifying a mesh subdomain. Partition
// boundaries are boundary tags carrying the remote rank.
type DomainTag struct {
	Kind DomainKind
	Name string // boundary name, valid when Kind == DomainBoundary
	Rank int    // remote rank for partition boundaries, else -1
}

const (
	// BTagAll names the union of all physical boundary faces.
	BTagAll = "all"
	// BTagNone names the provably empty boundary.
	BTagNone = "none"
)

func VolumeTag() DomainTag { return DomainTag{Kind: DomainVolume, Rank: -1} }

func ScalarTag() DomainTag { return DomainTag{Kind: DomainScalar, Rank: -1} }

func AllFacesTag() DomainTag { return DomainTag{Kind: DomainAllFaces, Rank: -1} }

func InteriorFacesTag() DomainTag { return DomainTag{Kind: DomainInteriorFaces, Rank: -1} }

func BoundaryTag(name string) DomainTag {
	return DomainTag{Kind: DomainBoundary, Name: name, Rank: -1}
}

// PartitionTag names the boundary shared with a neighboring rank.
func PartitionTag(rank int) DomainTag {
	return DomainTag{Kind: DomainBoundary, Name: "partition", Rank: rank}
}

func (t DomainTag) IsPartition() bool { return t.Kind == DomainBoundary && t.Rank >= 0 }

func (t DomainTag) String() string {
	switch t.Kind {
	case DomainVolume:
		return "vol"
	case DomainScalar:
		return "scalar"
	case DomainAllFaces:
		return "all_faces"
	case DomainInteriorFaces:
		return "int_faces"
	case DomainBoundary:
		if t.IsPartition() {
			return fmt.Sprintf("partition(%d)", t.Rank)
		}
		return "btag(" + t.Name + ")"
	}
	return "?"
}

// QuadTag names a quadrature rule; the empty tag means nodal (collocation)
// representation.
type QuadTag string

const QTagNone QuadTag = ""

// DofDesc is a domain descriptor: a domain tag crossed with a quadrature tag.
// It is a comparable value type, usable as a map key.
type DofDesc struct {
	Domain DomainTag
	Quad   QuadTag
}

var (
	DDVolume   = DofDesc{Domain: VolumeTag()}
	DDScalar   = DofDesc{Domain: ScalarTag()}
	DDAllFaces = DofDesc{Domain: AllFacesTag()}
	DDIntFaces = DofDesc{Domain: InteriorFacesTag()}
)

func Volume(q QuadTag) DofDesc { return DofDesc{Domain: VolumeTag(), Quad: q} }

func AllFaces(q QuadTag) DofDesc { return DofDesc{Domain: AllFacesTag(), Quad: q} }

func Boundary(name string) DofDesc { return DofDesc{Domain: BoundaryTag(name)} }

func Partition(rank int) DofDesc { return DofDesc{Domain: PartitionTag(rank)} }

func InteriorFaces() DofDesc { return DofDesc{Domain: InteriorFacesTag()} }

func (d DofDesc) WithQuad(q QuadTag) DofDesc {
	d.Quad = q
	return d
}

func (d DofDesc) UsesQuadrature() bool { return d.Quad != QTagNone }

// IsBoundary reports whether the descriptor names a boundary or face
// restriction rather than the volume.
func (d DofDesc) IsBoundary() bool {
	switch d.Domain.Kind {
	case DomainBoundary, DomainAllFaces, DomainInteriorFaces:
		return true
	}
	return false
}

func (d DofDesc) IsVolume() bool { return d.Domain.Kind == DomainVolume }

func (d DofDesc) String() string {
	s := d.Domain.String()
	if d.Quad != QTagNone {
		s += "Q" + string(d.Quad)
	}
	return s
}
