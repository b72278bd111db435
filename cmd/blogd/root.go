package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blogd/internal/config"
	"blogd/internal/format"
)

type outputOptions struct {
	json   bool
	format string
}

// structured reports whether command output should be machine readable.
func (o *outputOptions) structured() bool {
	return o.json || o.format != ""
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	out := &outputOptions{}
	var logLevel string
	var closeLog func() error

	cmd := &cobra.Command{
		Use:           "blogd",
		Short:         "blogd is a minimal blog: API server, web client and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closer, warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			closeLog = closer
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return configureOutput(out)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.json, "json", false, "output JSON")
	cmd.PersistentFlags().StringVarP(&out.format, "output", "o", "", "structured output format (json or yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newWebCmd(cfg),
		newRegisterCmd(cfg, out),
		newLoginCmd(cfg, out),
		newPostsCmd(cfg, out),
		newMigrateCmd(cfg, out),
		newImagesCmd(cfg, out),
		newSeedCmd(cfg, out),
		newConfigCmd(cfg),
	)

	return cmd
}

func configureOutput(out *outputOptions) error {
	name := out.format
	if name == "" {
		name = format.NameJSON
	}
	formatter, err := format.ForName(name)
	if err != nil {
		return err
	}
	outputFormatter = formatter
	return nil
}
