package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bakebatch/internal/batch"
	"bakebatch/internal/config"
)

// DefaultEvalFile is used when no eval config is named on the command line.
const DefaultEvalFile = "eval.yaml"

// addEvalCommand adds the folder batch evaluation command
func (app *App) addEvalCommand(rootCmd *cobra.Command) {
	evalCmd := &cobra.Command{
		Use:   "eval [eval.yaml]",
		Short: "Evaluate optimized prompts from prebuilt run folders",
		Long: `Run the external prompt evaluator once per configured folder. Folders
without an ` + batch.ArtifactFile + ` artifact (or missing entirely) are skipped
with a warning; the rest share one output directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultEvalFile
			if len(args) > 0 {
				path = args[0]
			}

			cfg, err := config.LoadEval(path)
			if err != nil {
				return err
			}
			if app.EvaluatorCmd != "" {
				cfg.Evaluator = app.EvaluatorCmd
			}

			env, err := config.LoadEnv(cfg.EnvFile)
			if err != nil {
				return err
			}

			runner := batch.NewEvalRunner(*cfg, app.invoker(),
				batch.WithEvalPrinter(app.printer),
				batch.WithEvalEnv(env),
			)
			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			if result.Failed > 0 {
				return fmt.Errorf("%d of %d folders failed", result.Failed, result.Total)
			}
			return nil
		},
	}

	evalCmd.Flags().StringVar(&app.EvaluatorCmd, "evaluator-cmd", "", "Override the external evaluator command")
	rootCmd.AddCommand(evalCmd)
}
