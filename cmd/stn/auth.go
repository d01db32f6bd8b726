package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tgienger/stn/internal/models"
)

// readPassword takes the password from the flag or the first line of in
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx()
			defer cancel()
			user, err := e.queries.Login(ctx, models.Credentials{Email: strings.TrimSpace(email), Password: pw})
			if err != nil {
				return errors.Wrap(err, "sign in")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(e *env) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx()
			defer cancel()
			reg := models.Registration{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Password: pw}
			if _, err := e.queries.Register(ctx, reg); err != nil {
				return errors.Wrap(err, "register")
			}
			user, err := e.queries.Login(ctx, models.Credentials{Email: reg.Email, Password: reg.Password})
			if err != nil {
				return errors.Wrap(err, "sign in")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user name, at least 3 characters")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 6 characters (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx()
			defer cancel()
			err := e.queries.Logout(ctx)
			if cerr := e.db.ClearRecent(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return errors.Wrap(err, "sign out")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := e.me()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}

var errNotSignedIn = errors.New("not signed in, run 'stn login' first")

func (e *env) me() (*models.User, error) {
	ctx, cancel := e.ctx()
	defer cancel()
	user, err := e.queries.Me(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "check session")
	}
	if user == nil {
		return nil, errNotSignedIn
	}
	return user, nil
}
