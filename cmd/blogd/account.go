package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"blogd/internal/api"
	"blogd/internal/config"
)

type credentialOptions struct {
	email         string
	password      string
	passwordStdin bool
}

func bindCredentialFlags(cmd *cobra.Command, opts *credentialOptions) {
	cmd.Flags().StringVar(&opts.email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.password, "password", "", "account password")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from stdin")
}

func (o *credentialOptions) resolvePassword(stdin io.Reader) error {
	if !o.passwordStdin {
		return nil
	}
	if o.password != "" {
		return errors.New("--password and --password-stdin are mutually exclusive")
	}
	password, err := readPassword(stdin)
	if err != nil {
		return err
	}
	o.password = password
	return nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newRegisterCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	opts := &credentialOptions{}
	var username string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolvePassword(os.Stdin); err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				user, err := client.Register(cmd.Context(), api.RegisterRequest{
					Username: username,
					Email:    opts.email,
					Password: opts.password,
				})
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(user)
				}
				return writeUser(user)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "display name")
	bindCredentialFlags(cmd, opts)
	return cmd
}

func newLoginCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	opts := &credentialOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check account credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolvePassword(os.Stdin); err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Login(cmd.Context(), api.LoginRequest{
					Email:    opts.email,
					Password: opts.password,
				})
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				return writePlain("%s\n", resp.Msg)
			})
		},
	}

	bindCredentialFlags(cmd, opts)
	return cmd
}
