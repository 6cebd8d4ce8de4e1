package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakebatch/internal/config"
	"bakebatch/internal/output"
)

func testEvalConfig(t *testing.T, folders ...string) config.EvalConfig {
	t.Helper()
	return config.EvalConfig{
		Evaluator: "python3 evaluate_prompts.py",
		Model:     "qwen2.5:7b",
		Limit:     10,
		OutputDir: filepath.Join(t.TempDir(), "eval_results"),
		Subjects:  []string{"high_school_mathematics", "college_physics"},
		Folders:   folders,
	}
}

// makeRunFolder creates a folder, optionally containing the prompts artifact.
func makeRunFolder(t *testing.T, withArtifact bool) string {
	t.Helper()
	dir := t.TempDir()
	if withArtifact {
		err := os.WriteFile(filepath.Join(dir, ArtifactFile), []byte("You are a careful solver.\n"), 0644)
		require.NoError(t, err)
	}
	return dir
}

func TestEvaluatorArgsSingleInvocationPerFolder(t *testing.T) {
	cfg := testEvalConfig(t)

	args := EvaluatorArgs(cfg, "experiments/run1")

	assert.Equal(t, []string{
		"--folder", "experiments/run1",
		"--model", "qwen2.5:7b",
		"--limit", "10",
		"--output_dir", cfg.OutputDir,
		"--subjects", "high_school_mathematics", "college_physics",
	}, args)
}

func TestEvalRunnerSkipsMissingFolderAndArtifact(t *testing.T) {
	valid := makeRunFolder(t, true)
	noArtifact := makeRunFolder(t, false)
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	cfg := testEvalConfig(t, missing, noArtifact, valid)

	invoker := &fakeInvoker{}
	buffer := output.NewCaptureBuffer()
	runner := NewEvalRunner(cfg, invoker,
		WithEvalPrinter(output.NewPrinter(output.WithWriter(buffer), output.Plain())),
	)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	// Skips carry distinct reasons and the valid folder is still processed
	assert.Contains(t, buffer.String(), "directory not found")
	assert.Contains(t, buffer.String(), ArtifactFile+" missing")
	require.Len(t, invoker.invocations, 1)
	assert.Contains(t, invoker.invocations[0].Args, valid)
}

func TestEvalRunnerTrimsTrailingSeparator(t *testing.T) {
	valid := makeRunFolder(t, true)

	cfg := testEvalConfig(t, valid+string(os.PathSeparator))

	invoker := &fakeInvoker{}
	runner := NewEvalRunner(cfg, invoker,
		WithEvalPrinter(output.NewPrinter(output.WithWriter(output.NewCaptureBuffer()), output.Plain())),
	)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	require.Len(t, invoker.invocations, 1)
	assert.Contains(t, invoker.invocations[0].Args, valid)
}

func TestEvalRunnerReportsEvaluatorFailure(t *testing.T) {
	first := makeRunFolder(t, true)
	second := makeRunFolder(t, true)

	cfg := testEvalConfig(t, first, second)

	invoker := &fakeInvoker{exitCodes: []int{1, 0}}
	buffer := output.NewCaptureBuffer()
	runner := NewEvalRunner(cfg, invoker,
		WithEvalPrinter(output.NewPrinter(output.WithWriter(buffer), output.Plain())),
	)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, invoker.invocations, 2, "failure must not stop remaining folders")
	assert.Contains(t, buffer.String(), "All 2 folders finished: 1 succeeded, 1 failed, 0 skipped.")
}
