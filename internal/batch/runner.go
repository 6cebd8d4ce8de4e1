package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"bakebatch/internal/config"
	"bakebatch/internal/invoke"
	"bakebatch/internal/logger"
	"bakebatch/internal/output"
)

// Outcome records the result of one experiment entry.
type Outcome struct {
	RunID  string
	Config config.ExperimentConfig
	Result invoke.Result
	Err    error
}

// OK reports whether the entry completed with exit status zero.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result.OK()
}

// Result is the aggregate tally for one batch.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

// Runner executes an ordered batch of optimization experiments, one
// external driver invocation per entry. Entries never run concurrently
// and a failing entry never stops the batch.
type Runner struct {
	cfg     config.BatchConfig
	env     map[string]string
	invoker invoke.Invoker
	printer *output.Printer
	log     *log.Logger

	// Injectable for deterministic tests.
	now   func() time.Time
	sleep func(time.Duration)

	skipPause bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithPrinter directs user-facing progress lines to the given printer.
func WithPrinter(p *output.Printer) Option {
	return func(r *Runner) { r.printer = p }
}

// WithEnv passes extra environment variables to every driver invocation.
func WithEnv(env map[string]string) Option {
	return func(r *Runner) { r.env = env }
}

// WithClock substitutes the wall clock used for per-entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithSleep substitutes the inter-run pause implementation.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Runner) { r.sleep = sleep }
}

// SkipPause disables the inter-run pause (dry runs).
func SkipPause() Option {
	return func(r *Runner) { r.skipPause = true }
}

// NewRunner creates a batch runner for the given configuration.
func NewRunner(cfg config.BatchConfig, invoker invoke.Invoker, options ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		invoker: invoker,
		printer: output.NewPrinter(),
		log:     logger.NewStyledLogger("Batch"),
		now:     time.Now,
		sleep:   time.Sleep,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// DriverArgs builds the driver flag list for one experiment. The iterative
// flags are omitted entirely when iterative mode is off.
func DriverArgs(exp config.ExperimentConfig, outputDir string) []string {
	args := []string{
		"--scorer_model", exp.ScorerModel,
		"--optimizer_model", exp.OptimizerModel,
		"--dataset_limit", strconv.Itoa(exp.SampleLimit),
		"--output_dir", outputDir,
	}
	if exp.Iterative {
		args = append(args,
			"--iterative",
			"--iterative_prompt_count", strconv.Itoa(exp.IterativePrompts),
		)
	}
	return args
}

// Run executes every configured experiment in list order and reports the
// aggregate tally. The only fatal condition is failing to create the base
// output directory; everything else is absorbed per entry.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	program, baseArgs, err := config.SplitCommand(r.cfg.Driver)
	if err != nil {
		return Result{}, fmt.Errorf("invalid driver command %q: %w", r.cfg.Driver, err)
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create base output directory %s: %w", r.cfg.OutputDir, err)
	}

	total := len(r.cfg.Experiments)
	result := Result{Total: total}

	r.log.Info("Starting experiment batch", "experiments", total, "program", r.cfg.Driver, "output_dir", r.cfg.OutputDir)

	for i, exp := range r.cfg.Experiments {
		r.printer.Printf("[%d/%d] scorer=%s optimizer=%s limit=%d mode=%s\n",
			i+1, total, exp.ScorerModel, exp.OptimizerModel, exp.SampleLimit, ModeTag(exp))

		outcome := r.runOne(ctx, program, baseArgs, exp)
		result.Outcomes = append(result.Outcomes, outcome)

		if outcome.OK() {
			result.Succeeded++
			r.printer.Success(fmt.Sprintf("run %s completed in %s", outcome.RunID, outcome.Result.Duration.Round(time.Second)))
		} else {
			result.Failed++
			if outcome.Err != nil {
				r.printer.Failure(fmt.Sprintf("run %s failed: %v", outcome.RunID, outcome.Err))
			} else {
				r.printer.Failure(fmt.Sprintf("run %s failed with exit code %d", outcome.RunID, outcome.Result.ExitCode))
			}
		}

		// Throttle between entries so the model-serving backend gets a
		// breather; never after the last one.
		if i < total-1 && r.cfg.Pause > 0 && !r.skipPause {
			r.sleep(r.cfg.Pause)
		}
	}

	r.printer.Header(fmt.Sprintf("All %d experiments finished: %d succeeded, %d failed.",
		result.Total, result.Succeeded, result.Failed))

	return result, nil
}

// runOne derives the run identity, prepares its directory, and performs a
// single driver invocation.
func (r *Runner) runOne(ctx context.Context, program string, baseArgs []string, exp config.ExperimentConfig) Outcome {
	startedAt := r.now()
	runID := NewRunID(exp, startedAt)
	outputDir := filepath.Join(r.cfg.OutputDir, runID)

	outcome := Outcome{RunID: runID, Config: exp}

	// A run directory is never reused; an existing one means an ID
	// collision and the entry is abandoned rather than overwritten.
	if _, err := os.Stat(outputDir); err == nil {
		outcome.Err = fmt.Errorf("output path already exists: %s", outputDir)
		return outcome
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		outcome.Err = fmt.Errorf("failed to create run directory %s: %w", outputDir, err)
		return outcome
	}

	inv := invoke.Invocation{
		Program: program,
		Args:    append(append([]string{}, baseArgs...), DriverArgs(exp, outputDir)...),
		Env:     r.env,
	}

	r.log.Debug("Starting run", "run_id", runID, "command", inv.CommandLine())

	res, err := r.invoker.Run(ctx, inv)
	outcome.Result = res
	outcome.Err = err

	rec := RunRecord{
		RunID:            runID,
		ScorerModel:      exp.ScorerModel,
		OptimizerModel:   exp.OptimizerModel,
		SampleLimit:      exp.SampleLimit,
		Iterative:        exp.Iterative,
		IterativePrompts: exp.IterativePrompts,
		CommandLine:      inv.CommandLine(),
		ExitCode:         res.ExitCode,
		StartedAt:        startedAt,
		Duration:         res.Duration,
		OutputDir:        outputDir,
	}
	if err := WriteRunRecord(outputDir, rec); err != nil {
		r.log.Warn("Failed to write run metadata", "run_id", runID, "error", err)
	}
	if err := UpdateBatchSummary(r.cfg.OutputDir, rec); err != nil {
		r.log.Warn("Failed to update batch summary", "error", err)
	}

	return outcome
}
