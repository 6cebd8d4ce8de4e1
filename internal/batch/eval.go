package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"bakebatch/internal/config"
	"bakebatch/internal/invoke"
	"bakebatch/internal/logger"
	"bakebatch/internal/output"
)

// ArtifactFile must exist inside a folder before it can be evaluated. It is
// the final prompt set the optimization driver writes at the end of a run.
const ArtifactFile = "optimized_prompts.txt"

// EvalOutcome records what happened to one target folder.
type EvalOutcome struct {
	Folder  string
	Skipped bool
	Reason  string
	Result  invoke.Result
	Err     error
}

// OK reports whether the folder was evaluated with exit status zero.
func (o EvalOutcome) OK() bool {
	return !o.Skipped && o.Err == nil && o.Result.OK()
}

// EvalResult is the aggregate tally for one folder batch.
type EvalResult struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Outcomes  []EvalOutcome
}

// EvalRunner executes the prompt evaluator once per prebuilt experiment
// folder. All folders share one output directory; there is no per-entry
// naming step.
type EvalRunner struct {
	cfg     config.EvalConfig
	env     map[string]string
	invoker invoke.Invoker
	printer *output.Printer
	log     *log.Logger
}

// EvalOption configures an EvalRunner.
type EvalOption func(*EvalRunner)

// WithEvalPrinter directs user-facing progress lines to the given printer.
func WithEvalPrinter(p *output.Printer) EvalOption {
	return func(r *EvalRunner) { r.printer = p }
}

// WithEvalEnv passes extra environment variables to every evaluator invocation.
func WithEvalEnv(env map[string]string) EvalOption {
	return func(r *EvalRunner) { r.env = env }
}

// NewEvalRunner creates a folder batch runner for the given configuration.
func NewEvalRunner(cfg config.EvalConfig, invoker invoke.Invoker, options ...EvalOption) *EvalRunner {
	r := &EvalRunner{
		cfg:     cfg,
		invoker: invoker,
		printer: output.NewPrinter(),
		log:     logger.NewStyledLogger("Eval"),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// EvaluatorArgs builds the evaluator flag list for one folder. Every
// subject is passed in the single invocation.
func EvaluatorArgs(cfg config.EvalConfig, folder string) []string {
	args := []string{
		"--folder", folder,
		"--model", cfg.Model,
		"--limit", strconv.Itoa(cfg.Limit),
		"--output_dir", cfg.OutputDir,
		"--subjects",
	}
	return append(args, cfg.Subjects...)
}

// Run evaluates every configured folder in list order. Missing folders and
// missing artifacts are skipped with distinct warnings; evaluator failures
// are reported; the batch always runs to the end.
func (r *EvalRunner) Run(ctx context.Context) (EvalResult, error) {
	program, baseArgs, err := config.SplitCommand(r.cfg.Evaluator)
	if err != nil {
		return EvalResult{}, fmt.Errorf("invalid evaluator command %q: %w", r.cfg.Evaluator, err)
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0755); err != nil {
		return EvalResult{}, fmt.Errorf("failed to create output directory %s: %w", r.cfg.OutputDir, err)
	}

	total := len(r.cfg.Folders)
	result := EvalResult{Total: total}

	r.log.Info("Starting evaluation batch", "folders", total, "model", r.cfg.Model,
		"subjects", strings.Join(r.cfg.Subjects, " "), "output_dir", r.cfg.OutputDir)

	for i, folder := range r.cfg.Folders {
		folder = strings.TrimRight(folder, string(os.PathSeparator))
		r.printer.Printf("[%d/%d] %s\n", i+1, total, folder)

		outcome := r.evalOne(ctx, program, baseArgs, folder)
		result.Outcomes = append(result.Outcomes, outcome)

		switch {
		case outcome.Skipped:
			result.Skipped++
			r.printer.Skip(fmt.Sprintf("%s: %s", folder, outcome.Reason))
		case outcome.OK():
			result.Succeeded++
			r.printer.Success(fmt.Sprintf("%s evaluated in %s", folder, outcome.Result.Duration.Round(time.Second)))
		default:
			result.Failed++
			if outcome.Err != nil {
				r.printer.Failure(fmt.Sprintf("%s failed: %v", folder, outcome.Err))
			} else {
				r.printer.Failure(fmt.Sprintf("%s failed with exit code %d", folder, outcome.Result.ExitCode))
			}
		}
	}

	r.printer.Header(fmt.Sprintf("All %d folders finished: %d succeeded, %d failed, %d skipped.",
		result.Total, result.Succeeded, result.Failed, result.Skipped))

	return result, nil
}

func (r *EvalRunner) evalOne(ctx context.Context, program string, baseArgs []string, folder string) EvalOutcome {
	outcome := EvalOutcome{Folder: folder}

	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		outcome.Skipped = true
		outcome.Reason = "directory not found"
		return outcome
	}

	if _, err := os.Stat(filepath.Join(folder, ArtifactFile)); err != nil {
		outcome.Skipped = true
		outcome.Reason = ArtifactFile + " missing"
		return outcome
	}

	inv := invoke.Invocation{
		Program: program,
		Args:    append(append([]string{}, baseArgs...), EvaluatorArgs(r.cfg, folder)...),
		Env:     r.env,
	}

	r.log.Debug("Evaluating folder", "folder", folder, "command", inv.CommandLine())

	res, err := r.invoker.Run(ctx, inv)
	outcome.Result = res
	outcome.Err = err
	return outcome
}
