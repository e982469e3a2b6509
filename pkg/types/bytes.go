package types

import (
	"fmt"
	"strconv"
)

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// ToBytes converts a raw byte count reported by the OS.
func ToBytes(v uint64) Bytes { return Bytes(v) }

// Uint64 returns the raw byte count.
func (b Bytes) Uint64() uint64 { return uint64(b) }

// String returns the decimal byte count, the form written to CSV records.
func (b Bytes) String() string { return strconv.FormatUint(uint64(b), 10) }

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// RoundGB returns the size in whole gigabytes (1024 base), rounded to nearest.
// The host summary reports installed memory this way ("16 GB").
func (b Bytes) RoundGB() uint64 {
	return uint64(b.GB() + 0.5)
}

// GB returns the number of gigabytes (1024 base).
func (b Bytes) GB() float64 { return float64(b) / (1024 * 1024 * 1024) }
