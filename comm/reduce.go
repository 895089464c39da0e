package comm

// Collective reductions built from the point-to-point primitives. Every
// rank contributes one value and receives the combined result; all ranks
// must call with the same tag.

func allReduce(c Communicator, tag int, value float64,
	combine func(a, b float64) float64) float64 {

	var (
		size  = c.Size()
		rank  = c.Rank()
		sends = make([]Request, 0, size-1)
		recvs = make([]Request, 0, size-1)
		bufs  = make([][]float64, size)
	)
	for other := 0; other < size; other++ {
		if other == rank {
			continue
		}
		sends = append(sends, c.Isend(other, tag, []float64{value}))
		bufs[other] = make([]float64, 1)
		recvs = append(recvs, c.Irecv(other, tag, bufs[other]))
	}
	for _, r := range recvs {
		r.Wait()
	}
	result := value
	for other, buf := range bufs {
		if other == rank {
			continue
		}
		result = combine(result, buf[0])
	}
	for _, s := range sends {
		s.Wait()
	}
	return result
}

func AllReduceSum(c Communicator, tag int, value float64) float64 {
	return allReduce(c, tag, value, func(a, b float64) float64 { return a + b })
}

func AllReduceMin(c Communicator, tag int, value float64) float64 {
	return allReduce(c, tag, value, func(a, b float64) float64 {
		if b < a {
			return b
		}
		return a
	})
}

func AllReduceMax(c Communicator, tag int, value float64) float64 {
	return allReduce(c, tag, value, func(a, b float64) float64 {
		if b > a {
			return b
		}
		return a
	})
}
