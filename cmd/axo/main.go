package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"axolotl/internal/api"
	"axolotl/internal/app"
	"axolotl/internal/config"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	apiURL  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "axo",
	Short: "axo - terminal client for the Axolotl Sanctuary",
	Long: `axo lets you adopt and care for virtual axolotls from the terminal.

Run without arguments to start the interactive client. Every screen of the
interactive client is also available as a subcommand for scripting.

Configuration is read from ~/.axo/config.yaml (override with --config or
AXO_HOME). Environment variables AXO_API_URL, AXO_STATE_DIR,
AXO_STORAGE_DRIVER, AXO_POLL_INTERVAL, AXO_LOG_LEVEL, AXO_METRICS_ADDR and
AXO_API_TIMEOUT override the file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.axo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides config)")

	rootCmd.AddCommand(
		loginCmd,
		registerCmd,
		logoutCmd,
		whoamiCmd,
		profileCmd,
		petsCmd,
		themeCmd,
	)
}

// loadConfig reads the config file selected by the global flags.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	return cfg, nil
}

// openApp wires the client for a one-shot command. With --verbose the logs
// go to stderr instead of the log file.
func openApp(opts app.Options) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
		cfg.Logging.File = "-"
	}
	return app.Open(cfg, opts)
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := openApp(app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return explain(fn(ctx, a))
}

// explain adds a hint to errors the user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case api.IsUnauthorized(err):
		return fmt.Errorf("%s (session cleared, run `axo login`)", api.Message(err, "unauthorized"))
	case errors.Is(err, errNotSignedIn):
		return err
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return errors.New(apiErr.Message)
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
