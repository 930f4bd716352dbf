package models

import "time"

// Outcome tags the result of a single task execution.
type Outcome string

// Task outcomes.
const (
	OutcomeSuccess              Outcome = "success"
	OutcomeSkippedMissingSource Outcome = "skipped_missing_source"
	OutcomeSkippedDisabled      Outcome = "skipped_disabled"
	OutcomeFailed               Outcome = "failed"
)

// TaskResult holds the outcome of one task execution.
type TaskResult struct {
	Task        TaskDescriptor
	Outcome     Outcome
	BackupName  string
	Destination string // directory or archive file written by the task
	FilesCopied int    // incremental only
	Duration    time.Duration
	Error       error
}

// SyncResult holds the result of an incremental sync.
type SyncResult struct {
	FilesCopied  int
	FilesSkipped int
	DirsCreated  int
	Duration     time.Duration
	Error        error
}

// ArchiveResult holds the result of an archiver invocation.
type ArchiveResult struct {
	OutputPath string
	ExitCode   int
	Stdout     string
	Stderr     string
	SizeBytes  int64
	Duration   time.Duration
	Error      error
}

// RunSummary aggregates the results of one orchestrator run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	Duration  time.Duration
	Results   []TaskResult
}

// Executed returns the results of tasks that were selected to run.
func (s RunSummary) Executed() []TaskResult {
	var out []TaskResult
	for _, r := range s.Results {
		if r.Outcome != OutcomeSkippedDisabled {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the results of tasks that failed.
func (s RunSummary) Failed() []TaskResult {
	return s.withOutcome(OutcomeFailed)
}

// Succeeded returns the results of tasks that completed successfully.
func (s RunSummary) Succeeded() []TaskResult {
	return s.withOutcome(OutcomeSuccess)
}

// HasFailures reports whether any task failed.
func (s RunSummary) HasFailures() bool {
	return len(s.Failed()) > 0
}

// Count returns the number of results with the given outcome.
func (s RunSummary) Count(o Outcome) int {
	return len(s.withOutcome(o))
}

func (s RunSummary) withOutcome(o Outcome) []TaskResult {
	var out []TaskResult
	for _, r := range s.Results {
		if r.Outcome == o {
			out = append(out, r)
		}
	}
	return out
}

// CopyResult holds the result of a full recursive copy.
type CopyResult struct {
	FilesCopied  int
	DirsCreated  int
	LinksCreated int
	BytesCopied  int64
	Duration     time.Duration
	Error        error
}
