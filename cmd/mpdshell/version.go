package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/SirJson/mpdshell/mpdprotocol"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, fullTitle())
			fmt.Fprintf(out, "protocol commands: %d\n", len(mpdprotocol.KnownCommands()))
			fmt.Fprintf(out, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
