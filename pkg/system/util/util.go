package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyPIDList is returned by ParsePIDs when the input holds no tokens.
var ErrEmptyPIDList = errors.New("util: empty pid list")

// SafeDiv returns n/d, or 0 when d is (nearly) zero.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// FmtFloat formats v with the shortest representation that round-trips.
func FmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParsePIDs parses a comma separated list such as "12, 40,7".
// Surrounding whitespace is ignored; any token that is not a positive
// integer fails the whole list.
func ParsePIDs(s string) ([]int32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyPIDList
	}

	parts := strings.Split(s, ",")
	out := make([]int32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse pid %q: %w", p, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("parse pid %q: must be > 0", p)
		}
		out = append(out, int32(v))
	}
	return out, nil
}

// SanitizeField replaces the CSV delimiter and line breaks so a value always
// occupies exactly one field of one line.
func SanitizeField(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}
