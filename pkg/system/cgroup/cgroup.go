// Package cgroup reports which cgroup hierarchy the host runs. The sampler
// only surfaces it in the host summary: per-process numbers read from /proc
// are container-local when the tool itself runs inside a cgroup namespace.
package cgroup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Version is the cgroup hierarchy layout of the host.
type Version int

const (
	Unsupported Version = iota // non-Linux or no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

const mountinfo = "/proc/self/mountinfo"

// Detect returns the detected cgroup version and the mount points it saw.
// Hosts without mountinfo report Unsupported with an error.
func Detect() (Version, []string, error) {
	f, err := os.Open(mountinfo)
	if err != nil {
		return Unsupported, nil, fmt.Errorf("open mountinfo: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return DetectFrom(f)
}

// DetectFrom parses mountinfo content. The line format has a " - fstype "
// separator; only the fstype and the mount point (5th field) matter.
func DetectFrom(r io.Reader) (Version, []string, error) {
	var (
		hasV1, hasV2 bool
		points       []string
		sc           = bufio.NewScanner(r)
	)
	for sc.Scan() {
		line := sc.Text()
		i := strings.LastIndex(line, " - ")
		if i < 0 {
			continue
		}
		tail := strings.Fields(line[i+3:])
		pre := strings.Fields(line[:i])
		if len(tail) < 1 || len(pre) < 5 {
			continue
		}

		switch tail[0] {
		case "cgroup2":
			hasV2 = true
		case "cgroup":
			hasV1 = true
		default:
			continue
		}
		points = append(points, pre[4])
	}
	if err := sc.Err(); err != nil {
		return Unsupported, nil, fmt.Errorf("scan mountinfo: %w", err)
	}

	switch {
	case hasV1 && hasV2:
		return Hybrid, points, nil
	case hasV2:
		return V2, points, nil
	case hasV1:
		return V1, points, nil
	default:
		return Unsupported, nil, nil
	}
}
