package main

import (
	"fmt"

	"axolotl/cmd/axo/views"
	"axolotl/internal/app"
	"axolotl/internal/logging"
	"axolotl/internal/router"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startRoute string

func init() {
	rootCmd.Flags().StringVar(&startRoute, "route", router.PathLanding, "screen to open first, e.g. /app/sanctuary")
}

// runInteractive starts the full-screen client. The token file is watched so
// a login or logout from another terminal shows up here.
func runInteractive(cmd *cobra.Command, args []string) error {
	if verbose {
		return fmt.Errorf("--verbose writes to stderr and cannot be combined with the interactive client; set logging.level instead")
	}

	a, err := openApp(app.Options{WatchToken: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.Start(ctx); err != nil {
		return err
	}

	m := views.New(a, startRoute)
	defer m.Close()

	log := a.Logs.Get(logging.CategoryUI)
	log.Info("interactive session started", zap.String("route", startRoute))

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		log.Error("interactive session failed", zap.Error(err))
		return fmt.Errorf("interactive client: %w", err)
	}
	log.Info("interactive session ended", zap.String("route", m.Location()))
	return nil
}
