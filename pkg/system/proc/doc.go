// Package proc is the sampler's view of the operating system: a Host that
// enumerates live processes and reports machine memory, and a Process handle
// that answers per-process questions (parent, name, status, CPU, RSS).
//
// The default Host is backed by gopsutil. Everything above this package talks
// to the interfaces only, so tests substitute an in-memory host.
//
// # Process handles are weak references
//
// A Process refers to OS state this program does not own. Any method may
// fail at any time because the process exited, became a zombie, or is not
// readable by the current user. Classify maps those failures onto three
// sentinels:
//
//	ErrGone         : the process no longer exists
//	ErrAccessDenied : the OS refused to expose the value
//	ErrZombie       : the process exited but was not yet reaped
//
// All three are transient from the sampler's point of view (IsTransient):
// the affected process contributes nothing for the current operation and the
// run continues.
//
// # CPU accounting
//
// Process.CPUPercent follows the psutil convention: the first call on a
// handle returns 0 and primes the baseline; later calls return the CPU time
// consumed since the previous call as a percentage of one core, so a process
// saturating four cores reads 400. Normalizing per logical core is the
// caller's job (see sampler.Normalize).
//
// Process.CPUCore returns the core the process last ran on. On Linux it is
// the "processor" field of /proc/<pid>/stat (ReadStat); elsewhere it is -1.
package proc
