package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

func requirePostID(cmd *cobra.Command, args []string) error {
	if err := requireExactlyArgs(1, "post id is required")(cmd, args); err != nil {
		return err
	}
	if strings.TrimSpace(args[0]) == "" {
		return errors.New("post id is required")
	}
	return nil
}
