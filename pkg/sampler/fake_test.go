package sampler_test

import (
	"context"
	"errors"
	"time"

	"github.com/ja7ad/procsampler/pkg/system/gpu"
	"github.com/ja7ad/procsampler/pkg/system/proc"
	"github.com/ja7ad/procsampler/pkg/types"
)

// fakeProc is an in-memory proc.Process. err fails every read; ppidErr
// fails only the identity probe.
type fakeProc struct {
	pid, ppid int32
	name      string
	status    string
	cpu       float64
	core      int
	rss       uint64

	err      error
	ppidErr  error
	cpuCalls int
	onRead   func()
}

func newProc(pid, ppid int32, name string) *fakeProc {
	return &fakeProc{pid: pid, ppid: ppid, name: name, status: "sleep", rss: 4096}
}

func (p *fakeProc) PID() int32 { return p.pid }

func (p *fakeProc) PPID(context.Context) (int32, error) {
	if p.ppidErr != nil {
		return 0, p.ppidErr
	}
	return p.ppid, p.err
}

func (p *fakeProc) Name(context.Context) (string, error)   { return p.name, p.err }
func (p *fakeProc) Status(context.Context) (string, error) { return p.status, p.err }

func (p *fakeProc) CPUPercent(context.Context) (float64, error) {
	p.cpuCalls++
	if p.onRead != nil {
		p.onRead()
	}
	return p.cpu, p.err
}

func (p *fakeProc) CPUCore(context.Context) (int, error) { return p.core, p.err }

func (p *fakeProc) RSS(context.Context) (types.Bytes, error) {
	return types.ToBytes(p.rss), p.err
}

type fakeHost struct {
	procs    []*fakeProc
	cores    int
	vm, swap proc.Memory
	listErr  error
	vmErr    error
	onSystem func()
}

func newHost(procs ...*fakeProc) *fakeHost {
	return &fakeHost{
		procs: procs,
		cores: 4,
		vm:    proc.Memory{Used: 3 << 30, Total: 16 << 30},
		swap:  proc.Memory{Used: 0, Total: 2 << 30},
	}
}

func (h *fakeHost) Processes(context.Context) ([]proc.Process, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	out := make([]proc.Process, 0, len(h.procs))
	for _, p := range h.procs {
		out = append(out, p)
	}
	return out, nil
}

func (h *fakeHost) LogicalCPUs(context.Context) (int, error) {
	if h.cores == 0 {
		return 0, errors.New("no cpu info")
	}
	return h.cores, nil
}

func (h *fakeHost) VirtualMemory(context.Context) (proc.Memory, error) {
	if h.onSystem != nil {
		h.onSystem()
	}
	return h.vm, h.vmErr
}

func (h *fakeHost) SwapMemory(context.Context) (proc.Memory, error) { return h.swap, nil }

type fakeGPU struct{ stats gpu.Stats }

func (g fakeGPU) Read(context.Context) gpu.Stats { return g.stats }
func (g fakeGPU) Name(context.Context) string    { return "fake" }

// fakeClock only moves when told to or when slept on.
type fakeClock struct {
	now     time.Time
	sleeps  []time.Duration
	onSleep func()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.onSleep != nil {
		c.onSleep()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}
