// Package split breaks a process CSV written by a sampling run into one file
// per pid, next to the input. Rows are copied as-is: the cpu figures in a
// process CSV are already normalized per core.
package split

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ja7ad/procsampler/pkg/sampler"
)

// ErrEmpty is returned for an input without a single record.
var ErrEmpty = errors.New("no process records")

// Group is the rows of one pid in input order.
type Group struct {
	PID  string
	Rows [][]string
}

// Read parses process records from r and groups them by pid, ordered by the
// first appearance of each pid.
func Read(r io.Reader) ([]Group, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(sampler.ProcessColumns)

	var (
		groups []Group
		index  = map[string]int{}
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		pid := rec[sampler.ColPID]
		i, ok := index[pid]
		if !ok {
			i = len(groups)
			index[pid] = i
			groups = append(groups, Group{PID: pid})
		}
		groups[i].Rows = append(groups[i].Rows, rec)
	}
	if len(groups) == 0 {
		return nil, ErrEmpty
	}
	return groups, nil
}

// OutputPath is where the rows of pid taken from path are written.
func OutputPath(path, pid string) string {
	return filepath.Join(filepath.Dir(path), pid+"_"+filepath.Base(path))
}

// File splits the process CSV at path and returns the files it wrote.
// Existing outputs are truncated.
func File(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	groups, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	written := make([]string, 0, len(groups))
	for _, g := range groups {
		out := OutputPath(path, g.PID)
		if err := write(out, g.Rows); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

func write(path string, rows [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
