package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ja7ad/procsampler/pkg/config"
	"github.com/ja7ad/procsampler/pkg/system/gpu"
	"github.com/ja7ad/procsampler/pkg/system/proc"
)

// env is what a command touches outside the process: the OS, the terminal and
// the clock.
type env struct {
	host   proc.Host
	gpu    func() gpu.Reader
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func defaultEnv() env {
	return env{
		host:   proc.NewHost(),
		gpu:    func() gpu.Reader { return gpu.Detect(gpu.DefaultTimeout) },
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
}

type flagValues struct {
	pid, pids   []int
	ppid, ppids []int
	prefix      string
	interval    float64
	cycles      int
	flushEvery  int
	yes         bool
	all         bool
	configPath  string
	verbose     bool
}

func (f *flagValues) register(fs *pflag.FlagSet) {
	d := config.Default()
	fs.IntSliceVar(&f.pid, "pid", nil, "pid to sample (repeatable, comma list allowed)")
	fs.IntSliceVar(&f.pids, "pids", nil, "comma-separated pids to sample")
	fs.IntSliceVar(&f.ppid, "ppid", nil, "parent pid whose descendants are sampled (repeatable)")
	fs.IntSliceVar(&f.ppids, "ppids", nil, "comma-separated parent pids whose descendants are sampled")
	fs.StringVar(&f.prefix, "fout", d.Prefix, "output file prefix, may include a directory")
	fs.Float64Var(&f.interval, "interval", d.Interval, "sampling period in seconds")
	fs.IntVar(&f.cycles, "cycles", d.Cycles, "stop after N cycles (0 = until interrupted)")
	fs.IntVar(&f.flushEvery, "flush-every", d.FlushEvery, "flush output files every N cycles")
	fs.BoolVarP(&f.yes, "yes", "y", d.AssumeYes, "sample the resolved processes without asking")
	fs.BoolVar(&f.all, "all", d.All, "sample every live process, re-listed each cycle (no confirmation)")
	fs.StringVar(&f.configPath, "config", "", "YAML file with run settings; flags override it")
}

// config layers defaults, the optional file and the flags the user set.
func (f *flagValues) config(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(f.configPath, cfg); err != nil {
			return config.Config{}, fmt.Errorf("%w: %w", errConfig, err)
		}
	}

	if fs.Changed("pid") || fs.Changed("pids") {
		pids, err := toPIDs(append(append([]int{}, f.pid...), f.pids...))
		if err != nil {
			return config.Config{}, err
		}
		cfg.PIDs = pids
	}
	if fs.Changed("ppid") || fs.Changed("ppids") {
		ppids, err := toPIDs(append(append([]int{}, f.ppid...), f.ppids...))
		if err != nil {
			return config.Config{}, err
		}
		cfg.PPIDs = ppids
	}
	if fs.Changed("fout") {
		cfg.Prefix = f.prefix
	}
	if fs.Changed("interval") {
		cfg.Interval = f.interval
	}
	if fs.Changed("cycles") {
		cfg.Cycles = f.cycles
	}
	if fs.Changed("flush-every") {
		cfg.FlushEvery = f.flushEvery
	}
	if fs.Changed("yes") {
		cfg.AssumeYes = f.yes
	}
	if fs.Changed("all") {
		cfg.All = f.all
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

func toPIDs(in []int) ([]int32, error) {
	out := make([]int32, 0, len(in))
	for _, v := range in {
		if v <= 0 || v > math.MaxInt32 {
			return nil, &config.FlagError{Kind: config.ErrInvalidValue, Err: fmt.Errorf("pid %d out of range", v)}
		}
		out = append(out, int32(v))
	}
	return out, nil
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &config.FlagError{Kind: config.ErrUnexpectedArg, Err: fmt.Errorf("%q", args[0])}
	}
	return nil
}

// NewRootCmd builds the sampling command and its subcommands.
func NewRootCmd(e env) *cobra.Command {
	var f flagValues

	root := &cobra.Command{
		Use:   "procsampler",
		Short: "Per-process and system-wide resource sampler",
		Long: `procsampler periodically samples cpu and memory figures of selected
processes (by pid, every descendant of a parent pid, or with --all every
process on the machine) together with machine-wide memory, swap and GPU
usage, and appends them to CSV files.

Outputs, for a prefix P and the run start time T:
  P_processes_T.csv  timestamp,pid,parentPid,name,cpuCore,cpuPercent,memoryRssBytes
  P_system_T.csv     timestamp,vmUsed,vmTotal,swapUsed,swapTotal,gpuUtil,gpuMemUsed,gpuMemTotal
  P_errors_T.log     one line per failed read

Examples:
  procsampler --pids 1234,5678 --interval 1
  procsampler --ppid $(pidof containerd) --fout runs/ctr --cycles 600 --yes
  procsampler --all --interval 5 --fout runs/host`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if f.verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.config(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, e)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return config.ClassifyFlagError(err)
	})
	root.SetIn(e.stdin)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	f.register(root.Flags())
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "log every cycle and debug messages to stderr")

	root.AddCommand(newSplitCmd(e))
	root.AddCommand(newSysinfoCmd(e))

	return root
}
