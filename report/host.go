package report

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host describes the machine a benchmark ran on.
type Host struct {
	OS               string `json:"os"`
	Arch             string `json:"arch"`
	CPUModel         string `json:"cpu_model,omitempty"`
	CPULogical       int    `json:"cpu_logical,omitempty"`
	MemoryTotalBytes uint64 `json:"memory_total_bytes,omitempty"`
}

// CollectHost gathers host details. Probes that fail leave their
// fields empty.
func CollectHost(ctx context.Context) Host {
	h := Host{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		h.CPUModel = infos[0].ModelName
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		h.CPULogical = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.MemoryTotalBytes = vm.Total
	}

	return h
}
