// Package invoke wraps external process execution behind a substitutable
// interface so batch runners can be unit tested without spawning anything.
package invoke

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"bakebatch/internal/logger"
)

// Invocation describes one external process call.
type Invocation struct {
	Program string
	Args    []string
	Dir     string
	// Env is merged over the inherited process environment.
	Env map[string]string
}

// CommandLine renders the invocation as a shell-like string for display.
func (inv Invocation) CommandLine() string {
	return strings.Join(append([]string{inv.Program}, inv.Args...), " ")
}

// Result captures the outcome of one external process call.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// OK reports whether the process exited with status zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Invoker runs external processes synchronously.
type Invoker interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecInvoker is the os/exec backed Invoker used in production.
type ExecInvoker struct{}

// NewExecInvoker creates a new ExecInvoker.
func NewExecInvoker() *ExecInvoker {
	return &ExecInvoker{}
}

// Run executes the invocation, blocking until the process exits. A nonzero
// exit status is not an error: it is reported through Result.ExitCode so
// callers can absorb per-entry failures. The returned error is reserved for
// processes that could not be started at all.
func (e *ExecInvoker) Run(ctx context.Context, inv Invocation) (Result, error) {
	logger.Invocation(inv.Program, inv.Args)

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = mergeEnv(os.Environ(), inv.Env)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	duration := time.Since(start)

	result := Result{
		Output:   string(output),
		Duration: duration,
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to start %s: %w", inv.Program, err)
	}

	return result, nil
}

// mergeEnv overlays extra KEY=VALUE pairs on top of a base environment.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key := kv
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			key = kv[:idx]
		}
		if _, shadowed := extra[key]; !shadowed {
			env = append(env, kv)
		}
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// DryRunInvoker prints the command line that would run and reports success.
type DryRunInvoker struct {
	// Printf receives one formatted line per invocation.
	Printf func(format string, args ...interface{})
}

// Run implements Invoker without spawning anything.
func (d *DryRunInvoker) Run(_ context.Context, inv Invocation) (Result, error) {
	if d.Printf != nil {
		d.Printf("dry-run: %s\n", inv.CommandLine())
	}
	return Result{ExitCode: 0}, nil
}
