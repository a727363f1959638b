package main

import (
	"context"
	"fmt"
	"io"

	"axolotl/cmd/axo/ui"
	"axolotl/internal/app"
	"axolotl/internal/types"

	"github.com/spf13/cobra"
)

var (
	profileUsername string
	profileBio      string
	profileAvatar   string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

// profileUpdateCmd only sends the fields that were set on the command line;
// the rest keep their current values.
var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change username, bio or avatar URL",
	Args:  cobra.NoArgs,
	RunE:  runProfileUpdate,
}

func init() {
	profileUpdateCmd.Flags().StringVarP(&profileUsername, "username", "u", "", "display name")
	profileUpdateCmd.Flags().StringVar(&profileBio, "bio", "", "short bio")
	profileUpdateCmd.Flags().StringVar(&profileAvatar, "avatar", "", "avatar image URL")
	profileCmd.AddCommand(profileUpdateCmd)
}

func printProfile(w io.Writer, u *types.User) {
	fmt.Fprintf(w, "username: %s\n", ui.Sanitize(u.Username))
	fmt.Fprintf(w, "email:    %s\n", ui.Sanitize(u.Email))
	if u.AvatarURL != "" {
		fmt.Fprintf(w, "avatar:   %s\n", ui.Sanitize(u.AvatarURL))
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "bio:      %s\n", ui.Sanitize(u.Bio))
	}
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		u, err := a.Client.Me(ctx)
		if err != nil {
			return err
		}
		a.Session.SetUser(u)
		printProfile(cmd.OutOrStdout(), u)
		return nil
	})
}

func runProfileUpdate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("username") && !flags.Changed("bio") && !flags.Changed("avatar") {
		return fmt.Errorf("nothing to update, pass --username, --bio or --avatar")
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		cur, err := a.Client.Me(ctx)
		if err != nil {
			return err
		}
		upd := types.ProfileUpdate{Username: cur.Username, Bio: cur.Bio, AvatarURL: cur.AvatarURL}
		if flags.Changed("username") {
			upd.Username = profileUsername
		}
		if flags.Changed("bio") {
			upd.Bio = profileBio
		}
		if flags.Changed("avatar") {
			upd.AvatarURL = profileAvatar
		}

		u, err := a.Client.UpdateMe(ctx, upd)
		if err != nil {
			return err
		}
		if u == nil {
			if err := a.Session.RefreshUser(ctx); err != nil {
				return err
			}
			u = a.Session.User()
		} else {
			a.Session.SetUser(u)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
		if u != nil {
			printProfile(cmd.OutOrStdout(), u)
		}
		return nil
	})
}
