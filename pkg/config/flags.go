package config

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds of command-line errors. All are fatal before sampling starts.
var (
	ErrUnknownFlag   = errors.New("unknown flag")
	ErrMissingValue  = errors.New("missing value")
	ErrInvalidValue  = errors.New("invalid value")
	ErrUnexpectedArg = errors.New("unexpected argument")
)

// FlagError is a command-line error tagged with its kind.
type FlagError struct {
	Kind error
	Err  error
}

func (e *FlagError) Error() string { return fmt.Sprintf("%v: %v", e.Kind, e.Err) }

func (e *FlagError) Unwrap() []error { return []error{e.Kind, e.Err} }

// ClassifyFlagError tags a flag parsing error with its kind. pflag reports
// every failure as a plain formatted error, so the kind is recovered from its
// stable message prefixes.
func ClassifyFlagError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var kind error
	switch {
	case strings.HasPrefix(msg, "unknown flag"),
		strings.HasPrefix(msg, "unknown shorthand flag"):
		kind = ErrUnknownFlag
	case strings.HasPrefix(msg, "flag needs an argument"):
		kind = ErrMissingValue
	default: // "invalid argument ..." and value validation
		kind = ErrInvalidValue
	}
	return &FlagError{Kind: kind, Err: err}
}
