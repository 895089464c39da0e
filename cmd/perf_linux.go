//go:build linux

package cmd

import (
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

// runWithPerf wraps run with hardware counter collection, reporting retired
// instructions when the kernel grants access to the counters.
func runWithPerf(run func()) {
	pv, err := perf.CPUInstructions(func() error {
		run()
		return nil
	})
	if err != nil {
		fmt.Printf("perf counters unavailable: %v\n", err)
		return
	}
	fmt.Printf("instructions = %d, enabled = %dns, running = %dns\n",
		pv.Value, pv.TimeEnabled, pv.TimeRunning)
}
