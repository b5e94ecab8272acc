package netstatus

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// LocalHealth folds the agent process's own resource pressure into the
// network summary, supplementing the remote cluster/epoch/performance/vote
// picture with "is this agent itself keeping up" (original_source's
// network_status_handler.py reports go-routine/thread counts alongside
// cluster health for the same reason).
type LocalHealth struct {
	CPUPercent    float64
	MemoryPercent float64
}

// sampleLocalHealth takes a best-effort, near-instant local resource
// reading. Failures are non-fatal: a zeroed LocalHealth just means this
// field stays absent from the report, same stale-or-absent treatment as
// every other aggregator field.
func sampleLocalHealth(ctx context.Context) LocalHealth {
	var h LocalHealth
	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		h.CPUPercent = pcts[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.MemoryPercent = vm.UsedPercent
	}
	return h
}
