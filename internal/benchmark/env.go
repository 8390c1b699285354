package benchmark

import (
	"runtime"

	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"
)

// CaptureEnvironment snapshots the runtime and host for a suite report.
// System-level readings come from procfs and are omitted where unavailable.
func CaptureEnvironment(logger *logrus.Logger) EnvironmentInfo {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	info := EnvironmentInfo{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		Process: ProcessMemory{
			HeapUsed:  stats.HeapAlloc,
			HeapTotal: stats.HeapSys,
			External:  stats.Sys - stats.HeapSys,
		},
	}

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		logger.WithError(err).Debug("procfs unavailable, skipping system memory")
		return info
	}

	if meminfo, err := fs.Meminfo(); err == nil {
		if meminfo.MemTotal != nil {
			info.TotalMemory = *meminfo.MemTotal * 1024
		}
		if meminfo.MemAvailable != nil {
			info.FreeMemory = *meminfo.MemAvailable * 1024
		}
	} else {
		logger.WithError(err).Debug("failed to read meminfo")
	}

	if proc, err := fs.Self(); err == nil {
		if stat, err := proc.Stat(); err == nil {
			info.Process.Resident = uint64(stat.ResidentMemory())
		}
	}

	return info
}
