package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ja7ad/procsampler/pkg/split"
)

func newSplitCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "split FILE...",
		Short: "Split process CSVs into one file per pid",
		Long: `split reads process CSVs written by a sampling run and writes the rows of
each pid to <pid>_<file> next to the input, keeping their order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for _, path := range args {
				written, err := split.File(path)
				for _, w := range written {
					fmt.Fprintln(e.stdout, w)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}
