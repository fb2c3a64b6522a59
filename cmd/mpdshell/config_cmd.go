package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SirJson/mpdshell/internal/config"
)

// newConfigCommand prints the effective configuration, after flags,
// environment and the config file are applied, in a form Load can read
// back. The password is masked.
func newConfigCommand(configFile *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config [host]",
		Short: "Print the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), *configFile, hostArg(args))
			if err != nil {
				return err
			}
			data, err := config.Encode(cfg, format)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.File != "" {
				fmt.Fprintf(out, "# read from %s\n", cfg.File)
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", config.FormatTOML, "Output format: toml or yaml")
	config.RegisterFlags(cmd.Flags())
	return cmd
}
