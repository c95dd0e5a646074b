// Package diagnostics collects host and process information for startup
// logging and support bundles.
package diagnostics

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// SystemInfo is a snapshot of the host running the pipeline.
type SystemInfo struct {
	OS           string  `json:"os"`
	Architecture string  `json:"architecture"`
	Hostname     string  `json:"hostname"`
	Platform     string  `json:"platform"`
	KernelVer    string  `json:"kernel_version"`
	UptimeSec    uint64  `json:"uptime_seconds"`
	NumCPU       int     `json:"num_cpu"`
	CPUModel     string  `json:"cpu_model,omitempty"`
	TotalMemMB   uint64  `json:"total_mem_mb"`
	UsedMemPct   float64 `json:"used_mem_pct"`
	GoVersion    string  `json:"go_version"`
	PID          int     `json:"pid"`
}

// CollectSystemInfo gathers host details. Fields that cannot be read are
// left at their zero value rather than failing the whole collection.
func CollectSystemInfo() SystemInfo {
	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		PID:          os.Getpid(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if hostInfo, err := host.Info(); err == nil {
		info.Platform = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		info.KernelVer = hostInfo.KernelVersion
		info.UptimeSec = hostInfo.Uptime
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		info.TotalMemMB = memInfo.Total / 1024 / 1024
		info.UsedMemPct = memInfo.UsedPercent
	}

	return info
}

// LogStartup writes the host snapshot to the diagnostics service log.
func LogStartup(version string) {
	logger := logging.ForService("diagnostics")
	info := CollectSystemInfo()

	logger.Info("host information",
		"version", version,
		"os", info.OS,
		"arch", info.Architecture,
		"hostname", info.Hostname,
		"platform", info.Platform,
		"kernel", info.KernelVer,
		"uptime", time.Duration(info.UptimeSec)*time.Second,
		"cpus", info.NumCPU,
		"cpu_model", info.CPUModel,
		"total_mem_mb", info.TotalMemMB,
		"go_version", info.GoVersion,
		"pid", info.PID)
}
