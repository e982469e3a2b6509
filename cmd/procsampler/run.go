package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ja7ad/procsampler/pkg/config"
	"github.com/ja7ad/procsampler/pkg/sampler"
	"github.com/ja7ad/procsampler/pkg/selector"
	"github.com/ja7ad/procsampler/pkg/sink"
	"github.com/ja7ad/procsampler/pkg/sysinfo"
)

var errConfig = errors.New("configuration")

// countedErrors counts what passes through to the error log.
type countedErrors struct {
	sampler.ErrorWriter
	n int
}

func (c *countedErrors) WriteError(msg string) error {
	c.n++
	return c.ErrorWriter.WriteError(msg)
}

func run(ctx context.Context, cfg config.Config, e env) (err error) {
	ctx, stop := notifyContext(ctx)
	defer stop()

	start := e.now()
	runID := uuid.NewString()
	g := e.gpu()

	if s, err := sysinfo.Collect(ctx, g); err != nil {
		slog.Warn("host summary unavailable", "err", err)
	} else {
		fmt.Fprint(e.stdout, s.Header(runID, start))
	}

	out, err := sink.Open(sink.PathsFor(cfg.Prefix, start), runID)
	if err != nil {
		return fmt.Errorf("open outputs: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close outputs: %w", cerr)
		}
	}()

	resolveErrs := &countedErrors{ErrorWriter: out}
	var set sampler.Set
	if cfg.All {
		set, err = sampler.All(ctx, e.host, resolveErrs)
	} else {
		set, err = sampler.Resolve(ctx, e.host, cfg.PIDs, cfg.PPIDs, resolveErrs)
	}
	if err != nil {
		return fmt.Errorf("resolve processes: %w", err)
	}

	switch {
	case cfg.All:
	case len(set) == 0:
		if len(cfg.PIDs)+len(cfg.PPIDs) > 0 {
			slog.Warn("no requested process is alive, sampling system figures only")
		}
	case !cfg.AssumeYes:
		set, err = selector.Confirm(ctx, e.stdin, e.stdout, set)
		if ctx.Err() != nil {
			slog.Info("interrupted")
			return nil
		}
		if err != nil {
			return fmt.Errorf("confirm processes: %w", err)
		}
		if len(set) == 0 {
			fmt.Fprintln(e.stdout, "nothing selected, exiting")
			return nil
		}
	}

	col, err := sampler.NewCollector(ctx, e.host, g)
	if err != nil {
		return fmt.Errorf("collector: %w", err)
	}
	opts := sampler.Options{
		Interval:   cfg.IntervalDuration(),
		Cycles:     cfg.Cycles,
		FlushEvery: cfg.FlushEvery,
		Logger:     slog.Default(),
	}
	if cfg.All {
		opts.Rescan = func(ctx context.Context, ew sampler.ErrorWriter) (sampler.Set, error) {
			return sampler.All(ctx, e.host, ew)
		}
	}
	sch, err := sampler.NewScheduler(col, out, set, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	fmt.Fprintf(e.stdout, "sampling %d process(es) on %d cores every %gs, Ctrl-C to stop\n",
		len(set), col.Cores(), cfg.Interval)

	runErr := sch.Run(ctx)
	if ctx.Err() != nil {
		slog.Info("interrupted")
	}

	st := sch.Stats()
	paths := out.Paths()
	fmt.Fprintf(e.stdout, summary,
		st.Cycles, st.SystemSamples, st.ProcessSamples, resolveErrs.n+st.Errors,
		paths.Processes, paths.System, paths.Errors)

	return runErr
}

const summary = `
procsampler run summary:
- cycles:           %d
- system records:   %d
- process records:  %d
- errors recorded:  %d
- outputs:          %s
                    %s
                    %s

`
