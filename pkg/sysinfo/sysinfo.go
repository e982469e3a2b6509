// Package sysinfo describes the machine a sampling run happens on.
package sysinfo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ja7ad/procsampler/pkg/system/cgroup"
	"github.com/ja7ad/procsampler/pkg/system/gpu"
	"github.com/ja7ad/procsampler/pkg/system/util"
	"github.com/ja7ad/procsampler/pkg/types"
)

// Summary is what a run reports about its host.
type Summary struct {
	OS              string
	Release         string
	Platform        string
	PlatformVersion string
	Arch            string
	Hostname        string
	Processor       string
	LogicalCPUs     int
	Memory          types.Bytes
	GPU             string // empty when no accelerator was found
	Cgroup          cgroup.Version
	CgroupMounts    []string
}

// Collect gathers the summary. Only the host identity lookup is required;
// every other field falls back to its zero value.
func Collect(ctx context.Context, g gpu.Reader) (Summary, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("host info: %w", err)
	}

	s := Summary{
		OS:              info.OS,
		Release:         info.KernelVersion,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		Arch:            info.KernelArch,
		Hostname:        info.Hostname,
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		s.Processor = strings.TrimSpace(cpus[0].ModelName)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		s.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.Memory = types.ToBytes(vm.Total)
	}
	if v, mounts, err := cgroup.Detect(); err == nil {
		s.Cgroup, s.CgroupMounts = v, mounts
	}
	if g != nil {
		s.GPU = g.Name(ctx)
	}
	return s, nil
}

// Line renders the summary as a single comma-separated line:
// os,release,version,machine,hostname,processor,<N> GB[,gpu].
func (s Summary) Line() string {
	fields := []string{
		s.OS,
		s.Release,
		strings.TrimSpace(s.Platform + " " + s.PlatformVersion),
		s.Arch,
		s.Hostname,
		s.Processor,
		fmt.Sprintf("%d GB", s.Memory.RoundGB()),
	}
	if s.GPU != "" {
		fields = append(fields, s.GPU)
	}
	for i, f := range fields {
		fields[i] = util.SanitizeField(f)
	}
	return strings.Join(fields, ",")
}

// Header renders the console banner printed before sampling starts.
func (s Summary) Header(runID string, at time.Time) string {
	gpuName := s.GPU
	if gpuName == "" {
		gpuName = "none"
	}
	cg := s.Cgroup.String()
	if len(s.CgroupMounts) > 0 {
		cg += " (" + strings.Join(s.CgroupMounts, " ") + ")"
	}
	return fmt.Sprintf(console,
		s.Hostname,
		strings.TrimSpace(s.OS+" "+s.Release),
		s.LogicalCPUs, s.Processor,
		s.Memory.Humanized(),
		cg,
		gpuName,
		runID,
		at.Format("2006-01-02 15:04:05"),
	)
}

const console = `procsampler - per-process and system-wide resource sampler

       Host: %s
       Kernel: %s
       CPUs: %d (%s)
       Mem: %s
       Cgroup: %s
       GPU: %s
       Run: %s

Sampling started at %s:

`
