// Package cli provides command-line interface setup for bakebatch.
package cli

import (
	"github.com/spf13/cobra"

	"bakebatch/internal/logger"
	"bakebatch/internal/output"
)

// App represents the bakebatch CLI application
type App struct {
	LogLevel     string
	LogFile      string
	Verbose      bool
	DryRun       bool
	PlainOutput  bool
	DriverCmd    string
	EvaluatorCmd string

	printer *output.Printer
}

// NewApp creates a new bakebatch CLI application
func NewApp() *App {
	return &App{}
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bakebatch",
		Short: "Batch runner for prompt-optimization experiments",
		Long: `bakebatch enumerates experiment configurations and drives an external
prompt-optimization process once per entry, then reports per-run outcomes.
A companion eval batch runs the prompt evaluator over prebuilt run folders.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level := app.LogLevel
			if app.Verbose && level == "" {
				level = "debug"
			}
			if err := logger.Configure(level, app.LogFile); err != nil {
				return err
			}

			opts := []output.Option{}
			if app.PlainOutput {
				opts = append(opts, output.Plain())
			}
			app.printer = output.NewPrinter(opts...)
			return nil
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&app.LogFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&app.DryRun, "dry-run", false, "Print invocations without executing them")
	rootCmd.PersistentFlags().BoolVar(&app.PlainOutput, "plain", false, "Disable styled console output")

	// Add all subcommands
	app.addRunCommand(rootCmd)
	app.addEvalCommand(rootCmd)
	app.addVersionCommand(rootCmd)

	return rootCmd
}
