// Package main is the entry point for the taskrun CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/taskrun/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errTasksFailed makes the process exit with status 1 without printing
// anything beyond the run report.
var errTasksFailed = errors.New("one or more tasks failed")

func main() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errTasksFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskrun",
		Short:         "Run scheduled tasks declared in a YAML file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), listCmd(), runCmd(), serveCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskrun %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// loadApp builds the application from the --config flag.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	return app.Load(cmd.Context(), cfgPath, app.Options{LogOutput: cmd.ErrOrStderr()})
}

func closeApp(a *app.App) {
	if err := a.Close(context.Background()); err != nil {
		a.Logger().Warn("taskrun: close failed", "error", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run due tasks every minute and serve the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)
			return a.Serve(cmd.Context())
		},
	}
}
