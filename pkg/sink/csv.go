// Package sink stores samples. CSV is the on-disk sink used by the CLI; Memory
// keeps everything in slices for tests.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/ja7ad/procsampler/pkg/sampler"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("sink: closed")

// CSV appends process and system records to two CSV files and failures to a
// text error log. Records are buffered by the csv writers until Flush; the
// error log is unbuffered.
type CSV struct {
	paths  Paths
	files  []*os.File
	procW  *csv.Writer
	sysW   *csv.Writer
	errLog *ErrorLog
	closed bool
}

// Open opens all three destinations. On failure nothing is left open.
func Open(paths Paths, runID string) (*CSV, error) {
	var files []*os.File
	for _, p := range []string{paths.Processes, paths.System, paths.Errors} {
		f, err := openAppend(p)
		if err != nil {
			for _, o := range files {
				_ = o.Close()
			}
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		files = append(files, f)
	}
	return &CSV{
		paths:  paths,
		files:  files,
		procW:  csv.NewWriter(files[0]),
		sysW:   csv.NewWriter(files[1]),
		errLog: NewErrorLog(files[2], runID),
	}, nil
}

// Paths returns the files the sink writes to.
func (c *CSV) Paths() Paths { return c.paths }

func (c *CSV) WriteProcess(s sampler.ProcessSample) error {
	if c.closed {
		return ErrClosed
	}
	return c.procW.Write(s.Record())
}

func (c *CSV) WriteSystem(s sampler.SystemSample) error {
	if c.closed {
		return ErrClosed
	}
	return c.sysW.Write(s.Record())
}

func (c *CSV) WriteError(msg string) error {
	if c.closed {
		return ErrClosed
	}
	return c.errLog.WriteError(msg)
}

// Flush pushes buffered records to the files.
func (c *CSV) Flush() error {
	if c.closed {
		return ErrClosed
	}
	c.procW.Flush()
	c.sysW.Flush()
	return errors.Join(c.procW.Error(), c.sysW.Error())
}

// Close flushes and closes every file. Only the first call does anything.
func (c *CSV) Close() error {
	if c.closed {
		return nil
	}
	err := c.Flush()
	c.closed = true
	for _, f := range c.files {
		err = errors.Join(err, f.Close())
	}
	return err
}
