package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kerbaras/novels/pkg/app"
	"github.com/kerbaras/novels/pkg/app/components"
	"github.com/kerbaras/novels/pkg/config"
	"github.com/kerbaras/novels/pkg/logging"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	cfg     = config.Default()
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "novels",
	Short:         "A resumable novel downloader",
	Long:          "Download novels chapter by chapter into one text file per work, resuming where the last run stopped",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logFile, err = logging.Init(cfg.LogsDir, verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  File logging disabled: %v\n", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Without a subcommand offer the interactive menu
		ctrl, err := services.NewController(cfg)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		watchProgress(cmd.OutOrStdout(), ctrl)
		return newApp(cmd, ctrl).Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.json5", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logFile != nil {
		logFile.Close()
	}

	switch {
	case err == nil:
	case errors.Is(err, app.ErrCancelled), errors.Is(err, context.Canceled):
		fmt.Println("\n👋 Cancelled")
	default:
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newApp(cmd *cobra.Command, ctrl *services.Controller) *app.App {
	prompt := app.NewTeaPrompter(cmd.Context())
	return app.NewApp(ctrl, prompt, cmd.OutOrStdout(), cfg.OutputDir)
}

// watchProgress prints a line for every download event and returns the
// tracker collecting failed chapters.
func watchProgress(out io.Writer, ctrl *services.Controller) *components.ProgressTracker {
	tracker := components.NewProgressTracker(30)
	ctrl.Downloader().OnProgress(func(p services.DownloadProgress) {
		if line := tracker.Update(p); line != "" {
			fmt.Fprintln(out, line)
		}
	})
	return tracker
}

func reportFailed(out io.Writer, tracker *components.ProgressTracker) {
	if failed := tracker.Failed(); len(failed) > 0 {
		fmt.Fprintf(out, "⚠️  %d chapters were saved with a placeholder: %v\n", len(failed), failed)
	}
}
