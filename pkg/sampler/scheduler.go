package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// State is the scheduler's position in its loop.
type State int

const (
	Idle     State = iota // built, Run not called yet
	Sampling              // taking the samples of one cycle
	Sleeping              // waiting for the next cycle
	Stopped               // Run returned
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrBadInterval is returned by NewScheduler for a non-positive interval.
var ErrBadInterval = errors.New("sampler: interval must be > 0")

// Clock is the scheduler's source of time. Sleep returns early with the
// context error when ctx is done.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options tune a Scheduler.
type Options struct {
	Interval   time.Duration
	Cycles     int // stop after this many cycles; 0 runs until ctx is done
	FlushEvery int // flush the sink every N cycles; < 1 means every cycle
	Clock      Clock
	Logger     *slog.Logger

	// Rescan, when set, replaces the tracked set before every cycle after
	// the first. Failures it writes to ew count as run errors.
	Rescan func(ctx context.Context, ew ErrorWriter) (Set, error)
}

// Stats counts what a run produced.
type Stats struct {
	Cycles         int
	SystemSamples  int
	ProcessSamples int
	Errors         int
}

// Scheduler drives the sampling loop over a frozen set of processes.
type Scheduler struct {
	col     *Collector
	sink    Sink
	tracked []Handle
	opts    Options
	state   State
	stats   Stats
}

// NewScheduler freezes set; later changes to the map are not observed. Only
// Options.Rescan changes what is tracked.
func NewScheduler(col *Collector, sink Sink, set Set, opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, ErrBadInterval
	}
	if opts.FlushEvery < 1 {
		opts.FlushEvery = 1
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{col: col, sink: sink, tracked: set.Sorted(), opts: opts}, nil
}

// State reports where the loop is. It is not safe to call during Run from
// another goroutine.
func (s *Scheduler) State() State { return s.state }

// Stats returns the counters so far.
func (s *Scheduler) Stats() Stats { return s.stats }

// SleepFor returns how long to wait after a cycle that took elapsed. Overrun
// cycles get no sleep; the cadence drifts instead of piling up.
func SleepFor(interval, elapsed time.Duration) time.Duration {
	if remaining := interval - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// Run samples until ctx is done, the cycle limit is reached, or the sink
// fails. Cancellation is a normal stop and returns nil; a sink failure is
// returned. The sink is flushed on every exit path; closing it is the
// caller's job.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	s.state = Sampling
	defer func() {
		s.state = Stopped
		if ferr := s.sink.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("flush: %w", ferr)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.opts.Rescan != nil && s.stats.Cycles > 0 {
			if err := s.rescan(ctx); err != nil {
				return err
			}
		}

		start := s.opts.Clock.Now()
		if err := s.cycle(ctx, start); err != nil {
			return err
		}
		s.stats.Cycles++
		if s.stats.Cycles%s.opts.FlushEvery == 0 {
			if err := s.sink.Flush(); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
		}
		s.opts.Logger.Debug("iteration done", "cycle", s.stats.Cycles)

		if s.opts.Cycles > 0 && s.stats.Cycles >= s.opts.Cycles {
			return nil
		}

		wait := SleepFor(s.opts.Interval, s.opts.Clock.Now().Sub(start))
		s.state = Sleeping
		if err := s.opts.Clock.Sleep(ctx, wait); err != nil {
			return nil
		}
		s.state = Sampling
	}
}

// cycle takes one system sample and one sample per tracked process, all
// stamped with at. Only sink errors are returned.
func (s *Scheduler) cycle(ctx context.Context, at time.Time) error {
	sys, err := s.col.System(ctx, at)
	if err != nil {
		if err := s.report(fmt.Sprintf("cycle %d system: %v", s.stats.Cycles+1, err)); err != nil {
			return err
		}
	} else {
		if err := s.sink.WriteSystem(sys); err != nil {
			return fmt.Errorf("write system record: %w", err)
		}
		s.stats.SystemSamples++
	}

	for _, h := range s.tracked {
		if ctx.Err() != nil {
			return nil
		}
		ps, err := s.col.Process(ctx, h, at)
		if err != nil {
			msg := fmt.Sprintf("cycle %d pid %d (%s): %v", s.stats.Cycles+1, h.PID, h.Name, err)
			if err := s.report(msg); err != nil {
				return err
			}
			continue
		}
		if err := s.sink.WriteProcess(ps); err != nil {
			return fmt.Errorf("write process record: %w", err)
		}
		s.stats.ProcessSamples++
	}
	return nil
}

// rescan swaps in a fresh tracked set. A pid that is still there under the
// same name keeps its old handle, and with it the cpu baseline; a reused pid
// with another name gets the new one.
func (s *Scheduler) rescan(ctx context.Context) error {
	fresh, err := s.opts.Rescan(ctx, reporter{s})
	if err != nil {
		return s.report(fmt.Sprintf("cycle %d rescan: %v", s.stats.Cycles+1, err))
	}

	prev := make(map[int32]Handle, len(s.tracked))
	for _, h := range s.tracked {
		prev[h.PID] = h
	}
	next := fresh.Sorted()
	for i, h := range next {
		if old, ok := prev[h.PID]; ok && old.Name == h.Name {
			next[i] = old
		}
	}
	s.tracked = next
	return nil
}

type reporter struct{ s *Scheduler }

func (r reporter) WriteError(msg string) error { return r.s.report(msg) }

func (s *Scheduler) report(msg string) error {
	s.stats.Errors++
	if err := s.sink.WriteError(msg); err != nil {
		return fmt.Errorf("write error record: %w", err)
	}
	return nil
}
