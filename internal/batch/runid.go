// Package batch enumerates experiment configurations and executes one
// external process per entry, strictly in order, absorbing per-entry
// failures so a batch always runs to the end.
package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bakebatch/internal/config"
)

// runTimestampFormat is the per-entry wall clock component of a run ID.
const runTimestampFormat = "2006-01-02_15-04-05"

// SanitizeModelID rewrites characters that are reserved in model
// identifiers or unsafe in paths. Ollama-style tags like "qwen2.5:7b"
// become "qwen2.5-7b"; HuggingFace-style "org/model" becomes "org-model".
func SanitizeModelID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\', ' ', '\t':
			return '-'
		}
		return r
	}, id)
}

// ModeTag renders the iterative mode component of a run ID.
func ModeTag(exp config.ExperimentConfig) string {
	if exp.Iterative {
		return fmt.Sprintf("IterOn_%d", exp.IterativePrompts)
	}
	return "IterOff"
}

// NewRunID derives the unique run identifier for one experiment entry.
// The fields appear in fixed order: sanitized scorer, sanitized optimizer,
// sample limit, mode tag, per-entry timestamp. A short random suffix makes
// two entries started within the same second distinct.
func NewRunID(exp config.ExperimentConfig, startedAt time.Time) string {
	parts := []string{
		SanitizeModelID(exp.ScorerModel),
		SanitizeModelID(exp.OptimizerModel),
		fmt.Sprintf("limit%d", exp.SampleLimit),
		ModeTag(exp),
		startedAt.Format(runTimestampFormat),
		shortSuffix(),
	}
	return strings.Join(parts, "_")
}

// shortSuffix returns 8 hex characters of a fresh UUID.
func shortSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
