package wave

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/godg/boxgrid"
	"github.com/notargets/godg/comm"
	"github.com/notargets/godg/dg"
)

func maxAbs(f dg.Field) (m float64) {
	switch v := f.(type) {
	case dg.Scalar:
		return math.Abs(float64(v))
	case *dg.DOFArray:
		for _, mat := range v.Data {
			for _, x := range mat.DataP {
				if a := math.Abs(x); a > m {
					m = a
				}
			}
		}
	case dg.FieldArray:
		for _, c := range v {
			if a := maxAbs(c); a > m {
				m = a
			}
		}
	}
	return
}

func TestQuiescentState(t *testing.T) {
	// the operator annihilates the zero state
	var (
		g  = boxgrid.NewGrid(3, []int{4}, []float64{0}, []float64{1})
		wv = NewWave(0.5, 1, 1, g)
	)
	for i := range wv.W {
		wv.W[i] = dg.Mul(dg.Scalar(0), wv.W[i])
	}
	assert.Less(t, maxAbs(wv.RHS(0)), 1.e-14)
}

func TestRadiatingBump1D(t *testing.T) {
	// the initial bump splits, propagates out through the absorbing
	// boundary, and takes nearly all the energy with it
	var (
		g  = boxgrid.NewGrid(4, []int{20}, []float64{0}, []float64{1})
		wv = NewWave(0.5, 1.5, 1, g)
	)
	wv.LogFrequency = 0
	e0 := wv.Energy()
	assert.Greater(t, e0, 0.)

	wv.Run()
	e1 := wv.Energy()
	assert.False(t, math.IsNaN(e1))
	assert.Less(t, e1, 0.2*e0)
}

func TestRadiatingBump2D(t *testing.T) {
	var (
		g  = boxgrid.NewGrid(3, []int{8, 8}, []float64{0, 0}, []float64{1, 1})
		wv = NewWave(0.5, 1.2, 1, g)
	)
	wv.LogFrequency = 0
	e0 := wv.Energy()

	wv.Run()
	e1 := wv.Energy()
	assert.False(t, math.IsNaN(e1))
	assert.Greater(t, e1, 0.)
	assert.Less(t, e1, 0.8*e0)
}

func TestPartitionedRun(t *testing.T) {
	// two ranks integrate the same problem; the cross-rank exchange keeps
	// the global energies identical on both sides
	var (
		group  = comm.NewGroup(2)
		wg     sync.WaitGroup
		energy = make([]float64, 2)
	)
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			g := boxgrid.NewPartitionedGrid(4, []int{16},
				[]float64{0}, []float64{1}, group.Comm(rank))
			wv := NewWave(0.5, 0.5, 1, g)
			wv.LogFrequency = 0
			wv.Run()
			energy[rank] = wv.Energy()
		}(rank)
	}
	wg.Wait()
	assert.Equal(t, energy[0], energy[1])
	assert.Greater(t, energy[0], 0.)
	assert.False(t, math.IsNaN(energy[0]))
}
