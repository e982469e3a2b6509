package proc

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ja7ad/procsampler/pkg/types"
)

// StatusZombie is the status string reported for an unreaped process.
const StatusZombie = process.Zombie

// Memory is a used/total pair for RAM or swap.
type Memory struct {
	Used  types.Bytes
	Total types.Bytes
}

// Host enumerates processes and reports machine-wide figures.
type Host interface {
	Processes(ctx context.Context) ([]Process, error)
	LogicalCPUs(ctx context.Context) (int, error)
	VirtualMemory(ctx context.Context) (Memory, error)
	SwapMemory(ctx context.Context) (Memory, error)
}

// Process is a fallible handle on a live OS process. Errors from every
// method except PID should be passed through Classify.
type Process interface {
	PID() int32
	PPID(ctx context.Context) (int32, error)
	Name(ctx context.Context) (string, error)
	Status(ctx context.Context) (string, error)
	CPUPercent(ctx context.Context) (float64, error)
	CPUCore(ctx context.Context) (int, error)
	RSS(ctx context.Context) (types.Bytes, error)
}

type host struct{}

// NewHost returns the gopsutil-backed Host.
func NewHost() Host { return host{} }

func (host) Processes(ctx context.Context) ([]Process, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	out := make([]Process, 0, len(ps))
	for _, p := range ps {
		out = append(out, &handle{p: p})
	}
	return out, nil
}

func (host) LogicalCPUs(ctx context.Context) (int, error) {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("count cpus: %w", err)
	}
	return n, nil
}

func (host) VirtualMemory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("virtual memory: %w", err)
	}
	return Memory{Used: types.ToBytes(vm.Used), Total: types.ToBytes(vm.Total)}, nil
}

func (host) SwapMemory(ctx context.Context) (Memory, error) {
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("swap memory: %w", err)
	}
	return Memory{Used: types.ToBytes(sw.Used), Total: types.ToBytes(sw.Total)}, nil
}

// handle wraps a gopsutil process. The wrapped value keeps the CPU-time
// baseline between CPUPercent calls, so one handle must be reused for the
// whole run.
type handle struct {
	p *process.Process
}

func (h *handle) PID() int32 { return h.p.Pid }

func (h *handle) PPID(ctx context.Context) (int32, error) {
	v, err := h.p.PpidWithContext(ctx)
	return v, Classify(err)
}

func (h *handle) Name(ctx context.Context) (string, error) {
	v, err := h.p.NameWithContext(ctx)
	return v, Classify(err)
}

func (h *handle) Status(ctx context.Context) (string, error) {
	st, err := h.p.StatusWithContext(ctx)
	if err != nil {
		return "", Classify(err)
	}
	return strings.Join(st, "+"), nil
}

func (h *handle) CPUPercent(ctx context.Context) (float64, error) {
	v, err := h.p.PercentWithContext(ctx, 0)
	return v, Classify(err)
}

func (h *handle) CPUCore(ctx context.Context) (int, error) {
	v, err := lastCPU(h.p.Pid)
	return v, Classify(err)
}

func (h *handle) RSS(ctx context.Context) (types.Bytes, error) {
	mi, err := h.p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, Classify(err)
	}
	return types.ToBytes(mi.RSS), nil
}
