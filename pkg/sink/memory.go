package sink

import (
	"sync"

	"github.com/ja7ad/procsampler/pkg/sampler"
)

// Memory keeps every record in memory. FailAfter, when > 0, makes the n-th
// write (of any kind) and all later ones fail with Err.
type Memory struct {
	mu        sync.Mutex
	Processes []sampler.ProcessSample
	Systems   []sampler.SystemSample
	Errors    []string
	Flushes   int
	Closed    int

	FailAfter int
	Err       error
	writes    int
}

// NewMemory returns an empty Memory. Set FailAfter and Err to inject failures.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) fail() error {
	m.writes++
	if m.FailAfter > 0 && m.writes >= m.FailAfter {
		return m.Err
	}
	return nil
}

func (m *Memory) WriteProcess(s sampler.ProcessSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Processes = append(m.Processes, s)
	return nil
}

func (m *Memory) WriteSystem(s sampler.SystemSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Systems = append(m.Systems, s)
	return nil
}

func (m *Memory) WriteError(msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Errors = append(m.Errors, msg)
	return nil
}

func (m *Memory) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed++
	return nil
}
