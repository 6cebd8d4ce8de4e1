package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bakebatch/internal/batch"
	"bakebatch/internal/config"
	"bakebatch/internal/invoke"
)

// DefaultBatchFile is used when no batch config is named on the command line.
const DefaultBatchFile = "batch.yaml"

// addRunCommand adds the optimization batch command
func (app *App) addRunCommand(rootCmd *cobra.Command) {
	runCmd := &cobra.Command{
		Use:   "run [batch.yaml]",
		Short: "Run a batch of optimization experiments",
		Long: `Run every experiment in the batch configuration, in order. Each entry
gets its own timestamped run directory and one driver invocation; a failing
entry is reported and the batch continues with the next one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultBatchFile
			if len(args) > 0 {
				path = args[0]
			}

			cfg, err := config.LoadBatch(path)
			if err != nil {
				return err
			}
			if app.DriverCmd != "" {
				cfg.Driver = app.DriverCmd
			}

			env, err := config.LoadEnv(cfg.EnvFile)
			if err != nil {
				return err
			}

			options := []batch.Option{
				batch.WithPrinter(app.printer),
				batch.WithEnv(env),
			}
			if app.DryRun {
				options = append(options, batch.SkipPause())
			}

			runner := batch.NewRunner(*cfg, app.invoker(), options...)
			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			if result.Failed > 0 {
				return fmt.Errorf("%d of %d experiments failed", result.Failed, result.Total)
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&app.DriverCmd, "driver-cmd", "", "Override the external driver command")
	rootCmd.AddCommand(runCmd)
}

// invoker selects the process invoker for the current flags.
func (app *App) invoker() invoke.Invoker {
	if app.DryRun {
		return &invoke.DryRunInvoker{Printf: app.printer.Printf}
	}
	return invoke.NewExecInvoker()
}
