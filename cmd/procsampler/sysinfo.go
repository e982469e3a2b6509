package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ja7ad/procsampler/pkg/sysinfo"
)

func newSysinfoCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "sysinfo",
		Short: "Print a one-line host summary",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := sysinfo.Collect(cmd.Context(), e.gpu())
			if err != nil {
				return err
			}
			fmt.Fprintln(e.stdout, s.Line())
			return nil
		},
	}
}
