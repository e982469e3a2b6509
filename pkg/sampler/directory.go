package sampler

import (
	"context"
	"fmt"

	"github.com/ja7ad/procsampler/pkg/system/proc"
)

// Resolve enumerates every live process once and returns those that match:
//   - the process pid is listed in pids, or
//   - its parent pid is listed in ppids, or
//   - it descends (at any depth) from a process whose pid or parent pid is
//     listed in ppids.
//
// A process that cannot be probed (gone, denied, zombie, or any other read
// failure) is skipped with exactly one entry written to ew. Only a failure
// to list processes, or to write to ew, is returned as an error. An empty
// result is valid.
func Resolve(ctx context.Context, host proc.Host, pids, ppids []int32, ew ErrorWriter) (Set, error) {
	live, err := enumerate(ctx, host, ew)
	if err != nil {
		return nil, err
	}

	var (
		wantPID  = toLookup(pids)
		wantPPID = toLookup(ppids)
		children = make(map[int32][]int32)
	)
	for pid, h := range live {
		children[h.PPID] = append(children[h.PPID], pid)
	}

	out := make(Set)
	var roots []int32
	for pid, h := range live {
		if wantPID[pid] || wantPPID[h.PPID] {
			out[pid] = h
		}
		if wantPPID[pid] || wantPPID[h.PPID] {
			roots = append(roots, pid)
		}
	}

	// walk descendants breadth first; seen guards against ppid cycles
	seen := make(map[int32]bool, len(roots))
	for _, r := range roots {
		seen[r] = true
	}
	for queue := roots; len(queue) > 0; queue = queue[1:] {
		for _, c := range children[queue[0]] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out[c] = live[c]
			queue = append(queue, c)
		}
	}
	return out, nil
}

// All returns every live process that can be probed, with the same error
// reporting as Resolve.
func All(ctx context.Context, host proc.Host, ew ErrorWriter) (Set, error) {
	return enumerate(ctx, host, ew)
}

func enumerate(ctx context.Context, host proc.Host, ew ErrorWriter) (Set, error) {
	all, err := host.Processes(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	live := make(Set, len(all))
	for _, p := range all {
		h, err := probe(ctx, p)
		if err != nil {
			if werr := ew.WriteError(fmt.Sprintf("resolve pid %d: %v", p.PID(), err)); werr != nil {
				return nil, werr
			}
			continue
		}
		live[h.PID] = h
	}
	return live, nil
}

// probe reads identity and parentage. Zombies are rejected since they can
// never produce a sample.
func probe(ctx context.Context, p proc.Process) (Handle, error) {
	ppid, err := p.PPID(ctx)
	if err != nil {
		return Handle{}, err
	}
	name, err := p.Name(ctx)
	if err != nil {
		return Handle{}, err
	}
	status, err := p.Status(ctx)
	if err != nil {
		return Handle{}, err
	}
	if status == proc.StatusZombie {
		return Handle{}, proc.ErrZombie
	}
	return Handle{PID: p.PID(), PPID: ppid, Name: name, Status: status, Proc: p}, nil
}

func toLookup(ids []int32) map[int32]bool {
	m := make(map[int32]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
