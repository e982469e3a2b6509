package proc

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	other := errors.New("boom")

	cases := []struct {
		name string
		in   error
		want error
	}{
		{"not_running", process.ErrorProcessNotRunning, ErrGone},
		{"enoent", &fs.PathError{Op: "open", Path: "/proc/1/stat", Err: syscall.ENOENT}, ErrGone},
		{"esrch", fmt.Errorf("kill: %w", syscall.ESRCH), ErrGone},
		{"eacces", &fs.PathError{Op: "open", Path: "/proc/1/io", Err: syscall.EACCES}, ErrAccessDenied},
		{"already_zombie", fmt.Errorf("pid 3: %w", ErrZombie), ErrZombie},
		{"other", other, other},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tc.in), tc.want)
		})
	}

	assert.NoError(t, Classify(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrGone))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", ErrAccessDenied)))
	assert.True(t, IsTransient(ErrZombie))
	assert.False(t, IsTransient(errors.New("disk full")))
	assert.False(t, IsTransient(nil))
}
