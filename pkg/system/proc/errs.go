package proc

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
)

var (
	// ErrGone indicates that the process exited since it was discovered.
	ErrGone = errors.New("proc: process gone")

	// ErrAccessDenied indicates that the OS refused to expose a value.
	ErrAccessDenied = errors.New("proc: access denied")

	// ErrZombie indicates that the process exited but was not reaped yet.
	ErrZombie = errors.New("proc: zombie process")

	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")
)

// Classify maps an OS error onto ErrGone or ErrAccessDenied when it is one of
// those conditions. Other errors are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsTransient(err):
		return err
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ESRCH):
		return fmt.Errorf("%w: %v", ErrGone, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	default:
		return err
	}
}

// IsTransient reports whether err is one of the per-process conditions that
// must not abort a run.
func IsTransient(err error) bool {
	return errors.Is(err, ErrGone) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrZombie)
}
