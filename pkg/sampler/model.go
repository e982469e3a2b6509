package sampler

import (
	"slices"
	"strconv"
	"time"

	"github.com/ja7ad/procsampler/pkg/system/gpu"
	"github.com/ja7ad/procsampler/pkg/system/proc"
	"github.com/ja7ad/procsampler/pkg/system/util"
	"github.com/ja7ad/procsampler/pkg/types"
)

// Column layouts of the two record kinds, in write order.
var (
	ProcessColumns = []string{"timestamp", "pid", "parentPid", "name", "cpuCore", "cpuPercent", "memoryRssBytes"}
	SystemColumns  = []string{"timestamp", "vmUsed", "vmTotal", "swapUsed", "swapTotal", "gpuUtil", "gpuMemUsed", "gpuMemTotal"}
)

// ColPID is the index of the pid column in a process record.
const ColPID = 1

// Handle is a resolved process: identity captured at resolution time plus the
// live OS handle used for every later read.
type Handle struct {
	PID    int32
	PPID   int32
	Name   string
	Status string
	Proc   proc.Process
}

// Set is a set of handles keyed by pid.
type Set map[int32]Handle

// Sorted returns the handles ordered by pid.
func (s Set) Sorted() []Handle {
	out := make([]Handle, 0, len(s))
	for _, h := range s {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b Handle) int { return int(a.PID) - int(b.PID) })
	return out
}

// PIDs returns the pids of s in ascending order.
func (s Set) PIDs() []int32 {
	out := make([]int32, 0, len(s))
	for pid := range s {
		out = append(out, pid)
	}
	slices.Sort(out)
	return out
}

// Keep returns the members of s whose pid is listed, and the listed pids that
// are not members. Duplicates in pids are collapsed.
func (s Set) Keep(pids []int32) (kept Set, missing []int32) {
	kept = make(Set, len(pids))
	for _, pid := range pids {
		if h, ok := s[pid]; ok {
			kept[pid] = h
			continue
		}
		if !slices.Contains(missing, pid) {
			missing = append(missing, pid)
		}
	}
	return kept, missing
}

// ProcessSample is one reading of one tracked process.
type ProcessSample struct {
	Time       time.Time
	PID        int32
	PPID       int32
	Name       string
	CPUCore    int
	CPUPercent float64 // normalized per logical core, 0..100
	RSS        types.Bytes
}

// Record returns the sample in ProcessColumns order.
func (s ProcessSample) Record() []string {
	return []string{
		Timestamp(s.Time),
		strconv.FormatInt(int64(s.PID), 10),
		strconv.FormatInt(int64(s.PPID), 10),
		util.SanitizeField(s.Name),
		strconv.Itoa(s.CPUCore),
		util.FmtFloat(s.CPUPercent),
		s.RSS.String(),
	}
}

// SystemSample is one machine-wide reading.
type SystemSample struct {
	Time time.Time
	VM   proc.Memory
	Swap proc.Memory
	GPU  gpu.Stats
}

// Record returns the sample in SystemColumns order. Unavailable GPU fields
// are written as -1.
func (s SystemSample) Record() []string {
	return []string{
		Timestamp(s.Time),
		s.VM.Used.String(),
		s.VM.Total.String(),
		s.Swap.Used.String(),
		s.Swap.Total.String(),
		util.FmtFloat(s.GPU.Util),
		strconv.FormatInt(s.GPU.MemUsed, 10),
		strconv.FormatInt(s.GPU.MemTotal, 10),
	}
}

// Timestamp formats t as Unix seconds with microsecond precision.
func Timestamp(t time.Time) string {
	return util.FmtFloat(float64(t.UnixMicro()) / 1e6)
}
