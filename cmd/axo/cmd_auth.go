package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"axolotl/cmd/axo/ui"
	"axolotl/cmd/axo/views"
	"axolotl/internal/app"
	"axolotl/internal/session"
	"axolotl/internal/types"

	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run `axo login` first")

var (
	authEmail    string
	authPassword string
	authUsername string
)

// loginCmd exchanges credentials for a token
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Signs in with email and password. The token is stored in the state
directory and used by every other command until logout or expiry.

If --password is omitted it is read from the first line of stdin.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

// registerCmd creates an account
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// whoamiCmd prints the signed-in profile and what the token says about itself
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "account password (read from stdin when empty)")
	}
	registerCmd.Flags().StringVarP(&authUsername, "username", "u", "", "display name")
}

// readPassword returns the flag value or the first line of in.
func readPassword(in io.Reader) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if authEmail == "" || password == "" {
		return errors.New(views.MsgFillAllFields)
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		token, err := a.Client.Login(ctx, types.Credentials{Email: authEmail, Password: password})
		if err != nil {
			return err
		}
		if err := a.Session.SetToken(ctx, token); err != nil {
			return err
		}
		printSignedIn(cmd.OutOrStdout(), a.Session.User(), authEmail)
		return nil
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if authEmail == "" || password == "" || authUsername == "" {
		return errors.New(views.MsgFillAllFields)
	}
	if views.PasswordTooShort(password) {
		return errors.New(views.MsgPasswordTooShort)
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		reg := types.Registration{Email: authEmail, Password: password, Username: authUsername}
		token, err := a.Client.Register(ctx, reg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if token == "" {
			fmt.Fprintln(out, "Account created successfully. Please sign in with `axo login`.")
			return nil
		}
		if err := a.Session.SetToken(ctx, token); err != nil {
			return err
		}
		printSignedIn(out, a.Session.User(), authEmail)
		return nil
	})
}

func printSignedIn(w io.Writer, u *types.User, email string) {
	if u != nil {
		fmt.Fprintf(w, "Signed in as %s <%s>\n", ui.Sanitize(u.Username), ui.Sanitize(u.Email))
		return
	}
	fmt.Fprintf(w, "Signed in as %s\n", email)
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if !a.Session.IsAuthenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		if err := a.Session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if !a.Session.IsAuthenticated() {
			return errNotSignedIn
		}
		if err := a.Session.RefreshUser(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if u := a.Session.User(); u != nil {
			fmt.Fprintf(out, "%s <%s>\n", ui.Sanitize(u.Username), ui.Sanitize(u.Email))
			if len(u.Roles) > 0 {
				fmt.Fprintf(out, "roles:   %s\n", ui.Sanitize(strings.Join(u.Roles, ", ")))
			}
		}

		claims, err := a.Session.Claims()
		if err != nil {
			fmt.Fprintln(out, "token:   opaque")
			return nil
		}
		printClaims(out, claims, time.Now())
		return nil
	})
}

func printClaims(w io.Writer, c session.Claims, now time.Time) {
	if c.Subject != "" {
		fmt.Fprintf(w, "subject: %s\n", c.Subject)
	}
	if len(c.Authorities) > 0 {
		fmt.Fprintf(w, "grants:  %s\n", strings.Join(c.Authorities, ", "))
	}
	switch {
	case c.ExpiresAt.IsZero():
		fmt.Fprintln(w, "expires: never")
	case c.Expired(now):
		fmt.Fprintf(w, "expires: %s (expired)\n", c.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "expires: %s (in %s)\n", c.ExpiresAt.Format(time.RFC3339), c.Remaining(now).Round(time.Second))
	}
}
