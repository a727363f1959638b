package main

import (
	"context"
	"fmt"
	"strings"

	"axolotl/internal/app"
	"axolotl/internal/prefs"

	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:   "theme [day|tropical|night]",
	Short: "Show or set the color theme",
	Long: `Without an argument prints the current theme. With one, stores it for
the interactive client. "next" cycles day -> tropical -> night.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"day", "tropical", "night", "next"},
	RunE:      runTheme,
}

func runTheme(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		out := cmd.OutOrStdout()
		cur := a.Prefs.Theme()
		if len(args) == 0 {
			fmt.Fprintln(out, cur)
			return nil
		}

		var next prefs.Theme
		if name := strings.ToLower(strings.TrimSpace(args[0])); name == "next" {
			next = cur.Next()
		} else {
			t, err := prefs.ParseTheme(name)
			if err != nil {
				return err
			}
			next = t
		}
		if err := a.Prefs.SetTheme(next); err != nil {
			return err
		}
		fmt.Fprintf(out, "theme: %s\n", next)
		return nil
	})
}
