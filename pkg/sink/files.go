package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StampLayout formats the run start time inside output file names.
const StampLayout = "2006-01-02T15-04-05"

// Paths names the three destinations of one run.
type Paths struct {
	Processes string
	System    string
	Errors    string
}

// PathsFor derives file names from the output prefix and the run start:
// <prefix>_processes_<stamp>.csv, <prefix>_system_<stamp>.csv and
// <prefix>_errors_<stamp>.log.
func PathsFor(prefix string, start time.Time) Paths {
	stamp := start.Format(StampLayout)
	return Paths{
		Processes: fmt.Sprintf("%s_processes_%s.csv", prefix, stamp),
		System:    fmt.Sprintf("%s_system_%s.csv", prefix, stamp),
		Errors:    fmt.Sprintf("%s_errors_%s.log", prefix, stamp),
	}
}

// openAppend opens path for appending, creating parent directories. Lines
// already in the file are never rewritten.
func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
}
