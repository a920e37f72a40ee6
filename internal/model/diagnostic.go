package model

const (
	// SeverityWarning indicates a recoverable finding.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal error, e.g. a skipped source.
	SeverityError Severity = "error"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a non-fatal finding collected while scanning or merging.
	// Callers decide how to render them instead of the scanner aborting.
	Diagnostic struct {
		Severity Severity
		// Code is a machine-readable identifier, e.g. "source_read_failed".
		Code    string
		Message string
		Path    Path
		Cause   error
	}
)
