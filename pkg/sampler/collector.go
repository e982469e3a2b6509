package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/ja7ad/procsampler/pkg/system/gpu"
	"github.com/ja7ad/procsampler/pkg/system/proc"
	"github.com/ja7ad/procsampler/pkg/system/util"
)

// Collector takes instantaneous readings. Every call is independent and is
// never retried; the logical core count is read once at construction.
type Collector struct {
	host  proc.Host
	gpu   gpu.Reader
	cores int
}

// NewCollector builds a Collector. A nil gpu reader means no accelerator.
func NewCollector(ctx context.Context, host proc.Host, g gpu.Reader) (*Collector, error) {
	n, err := host.LogicalCPUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}
	if n < 1 {
		n = 1
	}
	if g == nil {
		g = gpu.None{}
	}
	return &Collector{host: host, gpu: g, cores: n}, nil
}

// Cores returns the logical core count used for normalization.
func (c *Collector) Cores() int { return c.cores }

// Normalize converts a raw per-process CPU percentage (100 per fully used
// core) into a share of the whole machine.
func Normalize(raw float64, cores int) float64 {
	if cores < 1 {
		cores = 1
	}
	return util.SafeDiv(raw, float64(cores))
}

// System reads memory, swap and accelerator figures. GPU failures never
// surface here; they become gpu.Unavailable.
func (c *Collector) System(ctx context.Context, at time.Time) (SystemSample, error) {
	vm, err := c.host.VirtualMemory(ctx)
	if err != nil {
		return SystemSample{}, err
	}
	sw, err := c.host.SwapMemory(ctx)
	if err != nil {
		return SystemSample{}, err
	}
	return SystemSample{Time: at, VM: vm, Swap: sw, GPU: c.gpu.Read(ctx)}, nil
}

// Process reads one tracked process. Errors are already classified by the
// proc layer; proc.IsTransient reports whether the process merely vanished
// or became unreadable.
func (c *Collector) Process(ctx context.Context, h Handle, at time.Time) (ProcessSample, error) {
	raw, err := h.Proc.CPUPercent(ctx)
	if err != nil {
		return ProcessSample{}, fmt.Errorf("cpu percent: %w", err)
	}
	core, err := h.Proc.CPUCore(ctx)
	if err != nil {
		return ProcessSample{}, fmt.Errorf("cpu core: %w", err)
	}
	rss, err := h.Proc.RSS(ctx)
	if err != nil {
		return ProcessSample{}, fmt.Errorf("rss: %w", err)
	}
	return ProcessSample{
		Time:       at,
		PID:        h.PID,
		PPID:       h.PPID,
		Name:       h.Name,
		CPUCore:    core,
		CPUPercent: Normalize(raw, c.cores),
		RSS:        rss,
	}, nil
}
