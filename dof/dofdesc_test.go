package dof

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDofDesc(t *testing.T) {
	// descriptors are comparable values: building the same region two ways
	// yields structurally identical keys
	{
		if diff := cmp.Diff(Volume("OVSMP"), DDVolume.WithQuad("OVSMP")); diff != "" {
			t.Errorf("volume descriptor mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(DDIntFaces, InteriorFaces()); diff != "" {
			t.Errorf("interior faces descriptor mismatch (-want +got):\n%s", diff)
		}
		m := map[DofDesc]int{Volume("Q"): 1}
		assert.Equal(t, 1, m[DDVolume.WithQuad("Q")])
	}
	// partition boundaries are boundary tags carrying the remote rank
	{
		p := Partition(3)
		assert.True(t, p.Domain.IsPartition())
		assert.Equal(t, 3, p.Domain.Rank)
		assert.False(t, Boundary(BTagAll).Domain.IsPartition())
		assert.NotEqual(t, Partition(2), p)
	}
	// classification helpers
	{
		assert.True(t, DDVolume.IsVolume())
		assert.False(t, DDVolume.IsBoundary())
		assert.True(t, DDAllFaces.IsBoundary())
		assert.True(t, Boundary(BTagNone).IsBoundary())
		assert.True(t, Volume("Q").UsesQuadrature())
		assert.False(t, DDVolume.UsesQuadrature())
	}
	// stringification is deterministic and embeds the quadrature tag
	{
		assert.Equal(t, "vol", DDVolume.String())
		assert.Equal(t, "volQOVSMP", Volume("OVSMP").String())
		assert.Equal(t, "btag(all)", Boundary(BTagAll).String())
		assert.Equal(t, "partition(1)", Partition(1).String())
		assert.Equal(t, "int_faces", DDIntFaces.String())
	}
}
