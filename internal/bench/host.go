package bench

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo fingerprints the machine a benchmark ran on.
type HostInfo struct {
	Hostname      string
	Platform      string
	CPUModel      string
	NumCPU        int
	TotalMemoryMB int64
}

// CollectHostInfo gathers the fingerprint. Probe failures leave the
// affected field empty rather than failing the run.
func CollectHostInfo() HostInfo {
	info := HostInfo{NumCPU: runtime.NumCPU()}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform + " " + h.PlatformVersion
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemoryMB = int64(vm.Total / (1024 * 1024))
	}
	return info
}
