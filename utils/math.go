package utils

import (
	"fmt"
	"math"
	"runtime"
)

func POW(x float64, p int) (y float64) {
	if p < 0 {
		return 1. / POW(x, -p)
	}
	y = 1
	for i := 0; i < p; i++ {
		y *= x
	}
	return
}

func ConstArray(val float64, n int) (a []float64) {
	a = make([]float64, n)
	for i := range a {
		a[i] = val
	}
	return
}

// Low-storage five stage RK4 coefficients (Carpenter/Kennedy)
var (
	RK4a = []float64{
		0.0,
		-567301805773.0 / 1357537059087.0,
		-2404267990393.0 / 2016746695238.0,
		-3550918686646.0 / 2091501179385.0,
		-1275806237668.0 / 842570457699.0,
	}
	RK4b = []float64{
		1432997174477.0 / 9575080441755.0,
		5161836677717.0 / 13612068292357.0,
		1720146321549.0 / 2090206949498.0,
		3134564353537.0 / 4481467310338.0,
		2277821191437.0 / 14882151754819.0,
	}
	RK4c = []float64{
		0.0,
		1432997174477.0 / 9575080441755.0,
		2526269341429.0 / 6820363962896.0,
		2006345519317.0 / 3224310063776.0,
		2802321613138.0 / 2924317926251.0,
	}
)

func IsNan(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
	case Matrix:
		return IsNan(v.DataP)
	}
	return false
}

func IsNanPanic(A any) {
	if IsNan(A) {
		panic("NAN found")
	}
}

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}
