package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakebatch/internal/config"
	"bakebatch/internal/invoke"
	"bakebatch/internal/output"
)

// fakeInvoker records invocations and returns scripted exit codes.
type fakeInvoker struct {
	mu          sync.Mutex
	invocations []invoke.Invocation
	exitCodes   []int
}

func (f *fakeInvoker) Run(_ context.Context, inv invoke.Invocation) (invoke.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invocations = append(f.invocations, inv)
	code := 0
	if n := len(f.invocations); n <= len(f.exitCodes) {
		code = f.exitCodes[n-1]
	}
	return invoke.Result{ExitCode: code, Duration: 5 * time.Millisecond}, nil
}

func testBatchConfig(t *testing.T, experiments ...config.ExperimentConfig) config.BatchConfig {
	t.Helper()
	return config.BatchConfig{
		Driver:      "python3 main.py",
		OutputDir:   filepath.Join(t.TempDir(), "experiments"),
		Experiments: experiments,
	}
}

func TestDriverArgsIterativeOff(t *testing.T) {
	exp := config.ExperimentConfig{
		ScorerModel:    "qwen2.5:7b",
		OptimizerModel: "qwen2.5:14b",
		SampleLimit:    20,
	}

	args := DriverArgs(exp, "experiments/run1")

	assert.Equal(t, []string{
		"--scorer_model", "qwen2.5:7b",
		"--optimizer_model", "qwen2.5:14b",
		"--dataset_limit", "20",
		"--output_dir", "experiments/run1",
	}, args)
	assert.NotContains(t, args, "--iterative")
	assert.NotContains(t, args, "--iterative_prompt_count")
}

func TestDriverArgsIterativeOn(t *testing.T) {
	exp := config.ExperimentConfig{
		ScorerModel:      "qwen2.5:7b",
		OptimizerModel:   "qwen2.5:14b",
		SampleLimit:      20,
		Iterative:        true,
		IterativePrompts: 5,
	}

	args := DriverArgs(exp, "experiments/run1")

	iterative := 0
	count := 0
	for i, a := range args {
		if a == "--iterative" {
			iterative++
		}
		if a == "--iterative_prompt_count" {
			count++
			require.Less(t, i+1, len(args))
			assert.Equal(t, "5", args[i+1])
		}
	}
	assert.Equal(t, 1, iterative, "exactly one iterative flag expected")
	assert.Equal(t, 1, count, "exactly one count flag expected")
}

func TestRunnerContinuesAfterFailure(t *testing.T) {
	cfg := testBatchConfig(t,
		config.ExperimentConfig{ScorerModel: "a:1", OptimizerModel: "b:1", SampleLimit: 5},
		config.ExperimentConfig{ScorerModel: "a:2", OptimizerModel: "b:2", SampleLimit: 5},
		config.ExperimentConfig{ScorerModel: "a:3", OptimizerModel: "b:3", SampleLimit: 5},
	)

	// Second invocation fails
	invoker := &fakeInvoker{exitCodes: []int{0, 2, 0}}
	buffer := output.NewCaptureBuffer()
	runner := NewRunner(cfg, invoker,
		WithPrinter(output.NewPrinter(output.WithWriter(buffer), output.Plain())),
		WithSleep(func(time.Duration) {}),
	)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, invoker.invocations, 3, "a failing entry must not stop the batch")

	assert.Equal(t, 1, buffer.CountOccurrences(output.MarkerFailure))
	assert.Equal(t, 2, buffer.CountOccurrences(output.MarkerSuccess))
	assert.Contains(t, buffer.String(), "All 3 experiments finished: 2 succeeded, 1 failed.")
}

func TestRunnerCreatesRunDirectoriesAndMetadata(t *testing.T) {
	cfg := testBatchConfig(t,
		config.ExperimentConfig{ScorerModel: "qwen2.5:7b", OptimizerModel: "qwen2.5:14b", SampleLimit: 10},
	)

	invoker := &fakeInvoker{}
	runner := NewRunner(cfg, invoker,
		WithPrinter(output.NewPrinter(output.WithWriter(output.NewCaptureBuffer()), output.Plain())),
		WithSleep(func(time.Duration) {}),
	)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)

	runDir := filepath.Join(cfg.OutputDir, result.Outcomes[0].RunID)
	info, err := os.Stat(runDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(runDir, "run_metadata.json"))
	assert.NoError(t, err, "run metadata should be written into the run directory")

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "summary.json"))
	assert.NoError(t, err, "batch summary should be written into the base directory")

	// The driver received the run directory as its output dir
	require.Len(t, invoker.invocations, 1)
	assert.Contains(t, invoker.invocations[0].Args, runDir)
}

func TestRunnerPausesBetweenEntriesOnly(t *testing.T) {
	cfg := testBatchConfig(t,
		config.ExperimentConfig{ScorerModel: "a", OptimizerModel: "b", SampleLimit: 1},
		config.ExperimentConfig{ScorerModel: "c", OptimizerModel: "d", SampleLimit: 1},
		config.ExperimentConfig{ScorerModel: "e", OptimizerModel: "f", SampleLimit: 1},
	)
	cfg.Pause = 10 * time.Second

	var pauses []time.Duration
	runner := NewRunner(cfg, &fakeInvoker{},
		WithPrinter(output.NewPrinter(output.WithWriter(output.NewCaptureBuffer()), output.Plain())),
		WithSleep(func(d time.Duration) { pauses = append(pauses, d) }),
	)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	// N entries, N-1 pauses, none after the last
	require.Len(t, pauses, 2)
	assert.Equal(t, 10*time.Second, pauses[0])
}

func TestRunnerPerEntryTimestamps(t *testing.T) {
	cfg := testBatchConfig(t,
		config.ExperimentConfig{ScorerModel: "a", OptimizerModel: "b", SampleLimit: 1},
		config.ExperimentConfig{ScorerModel: "a", OptimizerModel: "b", SampleLimit: 1},
	)

	// Each entry starts one minute after the previous one
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	calls := 0
	runner := NewRunner(cfg, &fakeInvoker{},
		WithPrinter(output.NewPrinter(output.WithWriter(output.NewCaptureBuffer()), output.Plain())),
		WithSleep(func(time.Duration) {}),
		WithClock(func() time.Time {
			calls++
			return base.Add(time.Duration(calls-1) * time.Minute)
		}),
	)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)

	assert.Contains(t, result.Outcomes[0].RunID, "09-00-00")
	assert.Contains(t, result.Outcomes[1].RunID, "09-01-00")
}
