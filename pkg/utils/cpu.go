package utils

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/cpu"
)

func CheckCPUUsage(maxCPUUsage float64) (bool, float64) {
	usage, err := cpu.Percent(0, false)
	if err != nil || len(usage) == 0 {
		return false, 0
	}
	return usage[0] <= maxCPUUsage, usage[0]
}

// WaitForCPU blocks until CPU usage drops to maxCPUUsage or below. onBusy is
// called with the observed usage every time the check fails. A non-positive
// maxCPUUsage disables the gate.
func WaitForCPU(ctx context.Context, maxCPUUsage float64, interval time.Duration, onBusy func(usage float64)) error {
	if maxCPUUsage <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Second
	}
	for {
		ok, usage := CheckCPUUsage(maxCPUUsage)
		if ok {
			return nil
		}
		if onBusy != nil {
			onBusy(usage)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
