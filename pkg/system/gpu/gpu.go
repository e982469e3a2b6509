// Package gpu reads accelerator utilization on a best-effort basis. Every
// failure, including the absence of a supported device, yields Unavailable
// values instead of an error.
package gpu

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Unavailable marks a metric that could not be read. Real readings are never
// negative, so it cannot be mistaken for an idle device.
const Unavailable = -1

// DefaultTimeout bounds one nvidia-smi invocation.
const DefaultTimeout = 2 * time.Second

var errNoRows = errors.New("gpu: empty query output")

// Stats is one reading of the first accelerator.
type Stats struct {
	Util     float64 // percent, 0..100
	MemUsed  int64   // bytes
	MemTotal int64   // bytes
}

// UnavailableStats returns Stats with every field set to Unavailable.
func UnavailableStats() Stats {
	return Stats{Util: Unavailable, MemUsed: Unavailable, MemTotal: Unavailable}
}

// Available reports whether s holds a real reading.
func (s Stats) Available() bool {
	return s.Util != Unavailable && s.MemUsed != Unavailable && s.MemTotal != Unavailable
}

// Reader returns the current accelerator figures.
type Reader interface {
	Read(ctx context.Context) Stats
	Name(ctx context.Context) string
}

// CommandRunner abstracts external command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner is the default CommandRunner using os/exec.
type ExecCommandRunner struct{}

func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// None is the Reader used when no supported accelerator exists.
type None struct{}

func (None) Read(context.Context) Stats  { return UnavailableStats() }
func (None) Name(context.Context) string { return "" }

// Detect returns an nvidia-smi backed Reader, or None when the tool is not
// installed.
func Detect(timeout time.Duration) Reader {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return None{}
	}
	return NewNVIDIA(ExecCommandRunner{}, path, timeout)
}

// NVIDIA queries the first device through nvidia-smi.
type NVIDIA struct {
	runner  CommandRunner
	path    string
	timeout time.Duration
}

// NewNVIDIA reads through the nvidia-smi binary at path. Each query is
// bounded by timeout.
func NewNVIDIA(runner CommandRunner, path string, timeout time.Duration) *NVIDIA {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NVIDIA{runner: runner, path: path, timeout: timeout}
}

func (n *NVIDIA) Read(ctx context.Context) Stats {
	out, err := n.query(ctx, "utilization.gpu,memory.used,memory.total")
	if err != nil {
		return UnavailableStats()
	}
	s, err := ParseQuery(out)
	if err != nil {
		return UnavailableStats()
	}
	return s
}

func (n *NVIDIA) Name(ctx context.Context) string {
	out, err := n.query(ctx, "name")
	if err != nil {
		return ""
	}
	line, _ := firstLine(out)
	return line
}

func (n *NVIDIA) query(ctx context.Context, fields string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.runner.Run(ctx, n.path, "--query-gpu="+fields, "--format=csv,noheader,nounits")
}

// ParseQuery parses `utilization.gpu,memory.used,memory.total` output in
// csv,noheader,nounits form. Memory is reported in MiB and converted to
// bytes. Only the first device line is used.
func ParseQuery(out []byte) (Stats, error) {
	line, ok := firstLine(out)
	if !ok {
		return Stats{}, errNoRows
	}
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Stats{}, fmt.Errorf("gpu: want 3 fields, got %d in %q", len(parts), line)
	}

	util, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Stats{}, fmt.Errorf("gpu: utilization: %w", err)
	}
	used, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Stats{}, fmt.Errorf("gpu: memory.used: %w", err)
	}
	total, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return Stats{}, fmt.Errorf("gpu: memory.total: %w", err)
	}
	if util < 0 || used < 0 || total < 0 {
		return Stats{}, fmt.Errorf("gpu: negative reading in %q", line)
	}

	const mib = 1 << 20
	return Stats{Util: util, MemUsed: used * mib, MemTotal: total * mib}, nil
}

func firstLine(out []byte) (string, bool) {
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l, true
		}
	}
	return "", false
}
