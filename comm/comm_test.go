package comm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupExchange(t *testing.T) {
	// two ranks swap buffers, send posted before the matching receive
	{
		g := NewGroup(2)
		var wg sync.WaitGroup
		results := make([][]float64, 2)
		for rank := 0; rank < 2; rank++ {
			wg.Add(1)
			go func(rank int) {
				defer wg.Done()
				var (
					c     = g.Comm(rank)
					other = 1 - rank
					out   = []float64{float64(rank), float64(rank) + 0.5}
					in    = make([]float64, 2)
				)
				send := c.Isend(other, 7, out)
				recv := c.Irecv(other, 7, in)
				recv.Wait()
				send.Wait()
				results[rank] = in
			}(rank)
		}
		wg.Wait()
		assert.Equal(t, []float64{1, 1.5}, results[0])
		assert.Equal(t, []float64{0, 0.5}, results[1])
	}
	// messages on distinct tags do not cross
	{
		g := NewGroup(2)
		c0, c1 := g.Comm(0), g.Comm(1)
		c0.Isend(1, 1, []float64{1})
		c0.Isend(1, 2, []float64{2})

		buf2 := make([]float64, 1)
		c1.Irecv(0, 2, buf2).Wait()
		assert.Equal(t, 2., buf2[0])

		buf1 := make([]float64, 1)
		c1.Irecv(0, 1, buf1).Wait()
		assert.Equal(t, 1., buf1[0])
	}
	// the sender's buffer may be reused immediately after Wait
	{
		g := NewGroup(2)
		c0, c1 := g.Comm(0), g.Comm(1)
		out := []float64{42}
		c0.Isend(1, 0, out).Wait()
		out[0] = -1

		in := make([]float64, 1)
		c1.Irecv(0, 0, in).Wait()
		assert.Equal(t, 42., in[0])
	}
}

func TestSingleRank(t *testing.T) {
	c := SingleRank()
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())
}
