package constants

// Outcome is the per-file result status reported by the pipeline.
type Outcome string

// Stable values (rendered by the CLI and returned by the API).
const (
	OutcomeOK      Outcome = "OK"      // extracted (and persisted unless dry-run)
	OutcomeWarning Outcome = "WARNING" // recognized but unsupported format
	OutcomeFailed  Outcome = "FAILED"  // terminal failure for this file
)
