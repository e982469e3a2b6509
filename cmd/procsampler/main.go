package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/ja7ad/procsampler/pkg/config"
)

func main() {
	root := NewRootCmd(defaultEnv())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for anything wrong with the command line or configuration
// and 1 for runtime failures.
func exitCode(err error) int {
	var fe *config.FlagError
	if errors.As(err, &fe) || errors.Is(err, errConfig) {
		return 2
	}
	return 1
}
