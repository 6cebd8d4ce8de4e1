package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// metadata file names written alongside the driver's own outputs.
const (
	runMetadataFile  = "run_metadata.json"
	batchSummaryFile = "summary.json"
)

// maxSummaryHistory caps the rolling history kept in the batch summary.
const maxSummaryHistory = 50

// RunRecord captures what the runner knows about one finished run.
type RunRecord struct {
	RunID            string        `json:"run_id"`
	ScorerModel      string        `json:"scorer_model"`
	OptimizerModel   string        `json:"optimizer_model"`
	SampleLimit      int           `json:"sample_limit"`
	Iterative        bool          `json:"iterative"`
	IterativePrompts int           `json:"iterative_prompts,omitempty"`
	CommandLine      string        `json:"command_line"`
	ExitCode         int           `json:"exit_code"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	OutputDir        string        `json:"output_dir"`
}

// BatchSummary is the rolling per-base-directory record of past runs.
type BatchSummary struct {
	TotalRuns  int         `json:"total_runs"`
	LatestRun  time.Time   `json:"latest_run"`
	RunHistory []RunRecord `json:"run_history"`
}

// WriteRunRecord saves the run metadata into the run's output directory.
func WriteRunRecord(outputDir string, rec RunRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	path := filepath.Join(outputDir, runMetadataFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save run metadata: %w", err)
	}
	return nil
}

// UpdateBatchSummary appends a run record to the summary kept in the base
// output directory, trimming old history.
func UpdateBatchSummary(baseDir string, rec RunRecord) error {
	summaryPath := filepath.Join(baseDir, batchSummaryFile)

	var summary BatchSummary
	if data, err := os.ReadFile(summaryPath); err == nil {
		if err := json.Unmarshal(data, &summary); err != nil {
			// A corrupt summary is rebuilt from scratch
			summary = BatchSummary{}
		}
	}

	summary.TotalRuns++
	summary.LatestRun = rec.StartedAt
	summary.RunHistory = append(summary.RunHistory, rec)
	if len(summary.RunHistory) > maxSummaryHistory {
		summary.RunHistory = summary.RunHistory[len(summary.RunHistory)-maxSummaryHistory:]
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch summary: %w", err)
	}
	return os.WriteFile(summaryPath, data, 0644)
}
