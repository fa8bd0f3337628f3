package system

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// EnsureDirs creates the working directories the CLI reads from
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", d)
		}
	}
	return nil
}

// Usage is a snapshot of this process and the host
type Usage struct {
	RSS           uint64  // Resident memory of the process, bytes
	CPUPercent    float64 // Process CPU since start
	HostMemUsed   float64 // Percent of host memory in use
	HostMemTotal  uint64
	NumGoroutines int
}

// CollectUsage samples process and host memory
func CollectUsage(ctx context.Context) (Usage, error) {
	u := Usage{NumGoroutines: runtime.NumGoroutine()}

	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return u, errors.Wrap(err, "failed to open own process")
	}
	mi, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return u, errors.Wrap(err, "failed to read process memory")
	}
	u.RSS = mi.RSS
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		u.CPUPercent = cpu
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return u, errors.Wrap(err, "failed to read host memory")
	}
	u.HostMemUsed = vm.UsedPercent
	u.HostMemTotal = vm.Total
	return u, nil
}

// Report summarises one presentation run
type Report struct {
	Build      string
	Story      string
	Slides     int
	Animations int
	Total      time.Duration
	Conversion time.Duration
	Usage      Usage
}

// WriteReport prints the performance report block
func WriteReport(w io.Writer, r Report) {
	fmt.Fprintf(w,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Conversion: %.2fs\n"+
			"Slides: %d | Animations: %d\n"+
			"Memory (RSS): %.1f MB | CPU: %.1f%%\n"+
			"Host Memory Used: %.1f%% of %.1f GB\n"+
			"Goroutines: %d\n"+
			"----------------------------\n",
		r.Build, r.Total.Seconds(), r.Conversion.Seconds(),
		r.Slides, r.Animations,
		float64(r.Usage.RSS)/(1<<20), r.Usage.CPUPercent,
		r.Usage.HostMemUsed, float64(r.Usage.HostMemTotal)/(1<<30),
		r.Usage.NumGoroutines,
	)
}

// AppendBenchmark adds a one-line entry for r to the log at path
func AppendBenchmark(path string, r Report, now time.Time) error {
	entry := fmt.Sprintf("[%s] Build: %s | Story: %s | Slides: %d | Animations: %d | Total: %.2fs | Convert: %.2fs | RSS: %.1fMB\n",
		now.Format("2006-01-02 15:04:05"),
		r.Build,
		r.Story,
		r.Slides,
		r.Animations,
		r.Total.Seconds(),
		r.Conversion.Seconds(),
		float64(r.Usage.RSS)/(1<<20),
	)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
