package sampler

// ErrorWriter receives one message per non-fatal failure.
type ErrorWriter interface {
	WriteError(msg string) error
}

// Sink is where every sample goes. A returned error means the record could
// not be stored and the run must stop.
type Sink interface {
	ErrorWriter
	WriteProcess(ProcessSample) error
	WriteSystem(SystemSample) error
	Flush() error
}
