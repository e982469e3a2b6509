//go:build linux

package proc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Stat is the subset of /proc/<pid>/stat the sampler uses.
type Stat struct {
	State     string // R, S, D, Z, T, ...
	PPID      int32
	Processor int // CPU number last executed on
}

// ReadStat parses /proc/<pid>/stat.
func ReadStat(pid int32) (Stat, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return Stat{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Stat{}, err
		}
		return Stat{}, ErrNoStat
	}
	return ParseStat(sc.Text())
}

// ParseStat parses one /proc/<pid>/stat line.
//
// Caveats:
//   - comm (2nd field) is in parens and may contain spaces or ") ", so the
//     numeric fields start after the LAST ") ".
//   - Field indexes below are relative to the slice after comm, i.e. the
//     3rd overall field (state) is fields[0].
func ParseStat(line string) (Stat, error) {
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return Stat{}, ErrNoStat
	}
	fields := strings.Fields(line[i+2:])

	// processor is the 39th overall field
	if len(fields) < 37 {
		return Stat{}, ErrShortStat
	}

	var (
		st  = Stat{State: fields[0]}
		err error
		v   int64
	)
	if v, err = strconv.ParseInt(fields[1], 10, 32); err != nil {
		return Stat{}, fmt.Errorf("%w: ppid: %v", ErrNoStat, err)
	}
	st.PPID = int32(v)
	if v, err = strconv.ParseInt(fields[36], 10, 32); err != nil {
		return Stat{}, fmt.Errorf("%w: processor: %v", ErrNoStat, err)
	}
	st.Processor = int(v)
	return st, nil
}

func lastCPU(pid int32) (int, error) {
	st, err := ReadStat(pid)
	if err != nil {
		return -1, err
	}
	if st.State == "Z" {
		return -1, ErrZombie
	}
	return st.Processor, nil
}
