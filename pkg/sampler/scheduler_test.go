package sampler_test

import (
	"bufio"
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/procsampler/pkg/sampler"
	"github.com/ja7ad/procsampler/pkg/sink"
	"github.com/ja7ad/procsampler/pkg/system/proc"
)

func TestSleepFor(t *testing.T) {
	cases := []struct {
		interval, elapsed, want time.Duration
	}{
		{time.Second, 300 * time.Millisecond, 700 * time.Millisecond},
		{500 * time.Millisecond, 0, 500 * time.Millisecond},
		{time.Second, time.Second, 0},
		{time.Second, 1500 * time.Millisecond, 0},
		{time.Second, time.Hour, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sampler.SleepFor(tc.interval, tc.elapsed), "I=%s t=%s", tc.interval, tc.elapsed)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", sampler.Idle.String())
	assert.Equal(t, "sampling", sampler.Sampling.String())
	assert.Equal(t, "sleeping", sampler.Sleeping.String())
	assert.Equal(t, "stopped", sampler.Stopped.String())
	assert.Equal(t, "state(9)", sampler.State(9).String())
}

type fixture struct {
	host  *fakeHost
	clock *fakeClock
	mem   *sink.Memory
	sched *sampler.Scheduler
}

func newFixture(t *testing.T, opts sampler.Options, procs ...*fakeProc) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{host: newHost(procs...), clock: newClock(), mem: sink.NewMemory()}

	pids := make([]int32, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.pid)
	}
	set, err := sampler.Resolve(ctx, f.host, pids, nil, f.mem)
	require.NoError(t, err)
	col, err := sampler.NewCollector(ctx, f.host, nil)
	require.NoError(t, err)

	opts.Clock = f.clock
	f.sched, err = sampler.NewScheduler(col, f.mem, set, opts)
	require.NoError(t, err)
	assert.Equal(t, sampler.Idle, f.sched.State())
	return f
}

func TestScheduler_DriftCompensation(t *testing.T) {
	for _, tc := range []struct {
		name string
		work time.Duration
		want []time.Duration
	}{
		{"under_interval", 300 * time.Millisecond, []time.Duration{700 * time.Millisecond, 700 * time.Millisecond}},
		{"exact_interval", time.Second, []time.Duration{0, 0}},
		{"overrun", 1500 * time.Millisecond, []time.Duration{0, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, sampler.Options{Interval: time.Second, Cycles: 3}, newProc(100, 1, "worker"))
			f.host.onSystem = func() { f.clock.Advance(tc.work) }

			require.NoError(t, f.sched.Run(context.Background()))
			assert.Equal(t, tc.want, f.clock.sleeps, "no sleep after the final cycle")
			assert.Equal(t, sampler.Stopped, f.sched.State())
			assert.Equal(t, 3, f.sched.Stats().Cycles)
		})
	}
}

func TestScheduler_CycleSharesOneTimestamp(t *testing.T) {
	a, b := newProc(100, 1, "a"), newProc(101, 1, "b")
	f := newFixture(t, sampler.Options{Interval: time.Second, Cycles: 2}, a, b)
	// reading a process takes time, but every sample keeps the cycle start
	a.onRead = func() { f.clock.Advance(10 * time.Millisecond) }
	b.onRead = a.onRead

	require.NoError(t, f.sched.Run(context.Background()))
	require.Len(t, f.mem.Systems, 2)
	require.Len(t, f.mem.Processes, 4)
	for i, sys := range f.mem.Systems {
		for _, ps := range f.mem.Processes[i*2 : i*2+2] {
			assert.Equal(t, sys.Time, ps.Time)
		}
	}
	assert.Equal(t, time.Second, f.mem.Systems[1].Time.Sub(f.mem.Systems[0].Time))
}

func TestScheduler_TransientErrorSkipsProcess(t *testing.T) {
	alive, dying := newProc(100, 1, "alive"), newProc(101, 1, "dying")
	f := newFixture(t, sampler.Options{Interval: time.Second, Cycles: 3}, alive, dying)
	dying.err = proc.ErrGone

	require.NoError(t, f.sched.Run(context.Background()))
	assert.Len(t, f.mem.Systems, 3)
	assert.Len(t, f.mem.Processes, 3)
	for _, ps := range f.mem.Processes {
		assert.Equal(t, int32(100), ps.PID)
	}
	require.Len(t, f.mem.Errors, 3, "one entry per failed read, retried every cycle")
	assert.Contains(t, f.mem.Errors[0], "pid 101 (dying)")

	st := f.sched.Stats()
	assert.Equal(t, sampler.Stats{Cycles: 3, SystemSamples: 3, ProcessSamples: 3, Errors: 3}, st)
}

func TestScheduler_SystemErrorIsRecorded(t *testing.T) {
	f := newFixture(t, sampler.Options{Interval: time.Second, Cycles: 2}, newProc(100, 1, "w"))
	f.host.vmErr = errors.New("meminfo unreadable")

	require.NoError(t, f.sched.Run(context.Background()))
	assert.Empty(t, f.mem.Systems)
	assert.Len(t, f.mem.Processes, 2)
	assert.Len(t, f.mem.Errors, 2)
}

func TestScheduler_SinkFailureIsFatal(t *testing.T) {
	f := newFixture(t, sampler.Options{Interval: time.Second}, newProc(100, 1, "w"))
	f.mem.FailAfter, f.mem.Err = 4, errors.New("disk full")

	err := f.sched.Run(context.Background())
	require.ErrorIs(t, err, f.mem.Err)
	assert.Equal(t, sampler.Stopped, f.sched.State())
	assert.Equal(t, 1, f.sched.Stats().Cycles)
	assert.GreaterOrEqual(t, f.mem.Flushes, 2, "per-cycle flush plus the flush on exit")
}

func TestScheduler_CancelStopsGracefully(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, sampler.Options{Interval: time.Second}, newProc(100, 1, "w"))
	sleeps := 0
	f.clock.onSleep = func() {
		if sleeps++; sleeps == 2 {
			cancel()
		}
	}

	require.NoError(t, f.sched.Run(ctx))
	assert.Equal(t, sampler.Stopped, f.sched.State())
	assert.Equal(t, 2, f.sched.Stats().Cycles)
	assert.Len(t, f.mem.Systems, 2)
	assert.Equal(t, 3, f.mem.Flushes, "one per cycle and one on exit")
}

func TestScheduler_FlushCadence(t *testing.T) {
	f := newFixture(t, sampler.Options{Interval: time.Second, Cycles: 5, FlushEvery: 2}, newProc(100, 1, "w"))
	require.NoError(t, f.sched.Run(context.Background()))
	assert.Equal(t, 3, f.mem.Flushes, "after cycles 2 and 4, then on exit")
}

func TestScheduler_TrackedSetIsFrozen(t *testing.T) {
	ctx := context.Background()
	h := newHost(newProc(100, 1, "a"), newProc(200, 1, "b"))
	mem := sink.NewMemory()
	set, err := sampler.Resolve(ctx, h, []int32{100}, nil, mem)
	require.NoError(t, err)
	col, err := sampler.NewCollector(ctx, h, nil)
	require.NoError(t, err)

	s, err := sampler.NewScheduler(col, mem, set, sampler.Options{Interval: time.Second, Cycles: 1, Clock: newClock()})
	require.NoError(t, err)
	delete(set, 100)
	set[200] = sampler.Handle{PID: 200, Proc: h.procs[1]}

	require.NoError(t, s.Run(ctx))
	require.Len(t, mem.Processes, 1)
	assert.Equal(t, int32(100), mem.Processes[0].PID)
}

func TestNewScheduler_RejectsBadInterval(t *testing.T) {
	col, err := sampler.NewCollector(context.Background(), newHost(), nil)
	require.NoError(t, err)
	for _, iv := range []time.Duration{0, -time.Second} {
		_, err := sampler.NewScheduler(col, sink.NewMemory(), nil, sampler.Options{Interval: iv})
		assert.ErrorIs(t, err, sampler.ErrBadInterval)
	}
}

// One live process (pid 100, parent 1, "worker"), --pids 100, --interval 1.0,
// three cycles into real CSV files.
func TestEndToEnd_ThreeCyclesToCSV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := newClock()

	p := newProc(100, 1, "worker")
	p.cpu, p.core, p.rss = 50, 1, 123456
	host := newHost(p)

	paths := sink.PathsFor(dir+"/run", clock.Now())
	out, err := sink.Open(paths, "test-run")
	require.NoError(t, err)
	defer out.Close()

	set, err := sampler.Resolve(ctx, host, []int32{100}, nil, out)
	require.NoError(t, err)
	col, err := sampler.NewCollector(ctx, host, nil)
	require.NoError(t, err)
	s, err := sampler.NewScheduler(col, out, set, sampler.Options{Interval: time.Second, Cycles: 3, Clock: clock})
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))
	require.NoError(t, out.Close())

	procLines := readLines(t, paths.Processes)
	require.Len(t, procLines, 3)
	rx := regexp.MustCompile(`^\d+(\.\d+)?,100,1,worker,1,12\.5,123456$`)
	for _, l := range procLines {
		assert.Regexp(t, rx, l)
		assert.Len(t, strings.Split(l, ","), len(sampler.ProcessColumns))
	}

	sysLines := readLines(t, paths.System)
	require.Len(t, sysLines, 3)
	for _, l := range sysLines {
		f := strings.Split(l, ",")
		require.Len(t, f, len(sampler.SystemColumns))
		assert.Equal(t, []string{"-1", "-1", "-1"}, f[5:])
	}

	assert.Empty(t, readLines(t, paths.Errors))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	require.NoError(t, sc.Err())
	return out
}

func TestScheduler_RescanFollowsProcessTable(t *testing.T) {
	ctx := context.Background()
	first := newProc(100, 1, "worker")
	h := newHost(first)
	mem := sink.NewMemory()
	clock := newClock()

	set, err := sampler.All(ctx, h, mem)
	require.NoError(t, err)
	col, err := sampler.NewCollector(ctx, h, nil)
	require.NoError(t, err)

	same := newProc(100, 1, "worker")
	reused := newProc(100, 1, "other")
	started := newProc(101, 1, "late")
	sleeps := 0
	clock.onSleep = func() {
		sleeps++
		switch sleeps {
		case 1: // pid 100 re-listed under the same name, 101 appears
			h.procs = []*fakeProc{same, started}
		case 2: // pid 100 reused by another program, 101 gone
			h.procs = []*fakeProc{reused}
		}
	}

	sched, err := sampler.NewScheduler(col, mem, set, sampler.Options{
		Interval: time.Second,
		Cycles:   3,
		Clock:    clock,
		Rescan: func(ctx context.Context, ew sampler.ErrorWriter) (sampler.Set, error) {
			return sampler.All(ctx, h, ew)
		},
	})
	require.NoError(t, err)
	require.NoError(t, sched.Run(ctx))

	var got []string
	for _, ps := range mem.Processes {
		got = append(got, ps.Name)
	}
	assert.Equal(t, []string{"worker", "worker", "late", "other"}, got)
	assert.Equal(t, 2, first.cpuCalls, "existing handle kept across the rescan")
	assert.Zero(t, same.cpuCalls)
	assert.Equal(t, 1, reused.cpuCalls)
}

func TestScheduler_RescanFailureKeepsSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sampler.Options{
		Interval: time.Second,
		Cycles:   2,
		Rescan: func(context.Context, sampler.ErrorWriter) (sampler.Set, error) {
			return nil, errors.New("proc table unreadable")
		},
	}, newProc(100, 1, "worker"))

	require.NoError(t, f.sched.Run(ctx))
	assert.Len(t, f.mem.Processes, 2)
	require.Len(t, f.mem.Errors, 1)
	assert.Contains(t, f.mem.Errors[0], "cycle 2 rescan: proc table unreadable")
	assert.Equal(t, 1, f.sched.Stats().Errors)
}

func TestScheduler_RescanProbeErrorsCount(t *testing.T) {
	ctx := context.Background()
	broken := newProc(200, 1, "broken")
	broken.ppidErr = proc.ErrAccessDenied
	h := newHost(newProc(100, 1, "worker"), broken)
	mem := sink.NewMemory()

	set, err := sampler.Resolve(ctx, h, []int32{100}, nil, mem)
	require.NoError(t, err)
	require.Len(t, mem.Errors, 1, "resolve reports the unreadable process")

	col, err := sampler.NewCollector(ctx, h, nil)
	require.NoError(t, err)
	sched, err := sampler.NewScheduler(col, mem, set, sampler.Options{
		Interval: time.Second,
		Cycles:   2,
		Clock:    newClock(),
		Rescan: func(ctx context.Context, ew sampler.ErrorWriter) (sampler.Set, error) {
			return sampler.All(ctx, h, ew)
		},
	})
	require.NoError(t, err)

	require.NoError(t, sched.Run(ctx))
	assert.Equal(t, 1, sched.Stats().Errors, "one probe failure in the second cycle's rescan")
	assert.Len(t, mem.Errors, 2)
	assert.Len(t, mem.Processes, 2)
}
