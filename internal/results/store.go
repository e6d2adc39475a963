// Package results persists evaluation summaries as timestamped JSON files.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/compliance-agent/internal/evaluation"
	"github.com/mwiater/compliance-agent/internal/logging"
)

const (
	filePrefix      = "eval_results_"
	fileExt         = ".json"
	timestampLayout = "20060102_150405"
)

// Store writes one file per summary under a results directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a Store rooted at dir. An empty dir means "eval_logs".
func NewStore(dir string) *Store {
	if strings.TrimSpace(dir) == "" {
		dir = "eval_logs"
	}
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the results directory.
func (s *Store) Dir() string { return s.dir }

// FileName returns the file name used for a summary saved at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timestampLayout) + fileExt
}

// Save writes summary to eval_results_<YYYYMMDD_HHMMSS>.json, creating the
// directory if needed. An existing file is never overwritten: a same-second
// collision is returned as an error along with every other write failure.
func (s *Store) Save(summary evaluation.Summary) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating results directory: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding evaluation summary: %w", err)
	}

	path := filepath.Join(s.dir, FileName(s.now()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("error opening results file: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("error writing results file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing results file %s: %w", path, err)
	}

	logging.LogEvent("evaluation summary saved: %s (run %s)", path, summary.Metadata.RunID)
	return path, nil
}

// Load reads a saved summary back.
func Load(path string) (evaluation.Summary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return evaluation.Summary{}, fmt.Errorf("error reading results file: %w", err)
	}
	var summary evaluation.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return evaluation.Summary{}, fmt.Errorf("error parsing results file %s: %w", path, err)
	}
	return summary, nil
}
