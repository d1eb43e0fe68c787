package types

import (
	"time"
)

// Summary counts outcomes by status.
type Summary struct {
	Applied int `json:"applied" yaml:"applied" toml:"applied"`
	Changed int `json:"changed" yaml:"changed" toml:"changed"`
	Skipped int `json:"skipped" yaml:"skipped" toml:"skipped"`
	Failed  int `json:"failed" yaml:"failed" toml:"failed"`
}

// Failure is a failed outcome reduced to what a user needs to act on.
type Failure struct {
	Rule   string `json:"rule" yaml:"rule" toml:"rule"`
	Path   string `json:"path" yaml:"path" toml:"path"`
	Reason string `json:"reason" yaml:"reason" toml:"reason"`
	Code   string `json:"code" yaml:"code" toml:"code"`
}

// RunReport is the only output of a reconciliation run.
type RunReport struct {
	Mode     RunMode   `json:"mode" yaml:"mode" toml:"mode"`
	Boot     bool      `json:"boot" yaml:"boot" toml:"boot"`
	DryRun   bool      `json:"dryRun" yaml:"dryRun" toml:"dryRun"`
	Started  time.Time `json:"started" yaml:"started" toml:"started"`
	Finished time.Time `json:"finished" yaml:"finished" toml:"finished"`
	// Cancelled is set when the run stopped before every rule was applied.
	Cancelled bool `json:"cancelled,omitempty" yaml:"cancelled,omitempty" toml:"cancelled,omitempty"`

	Summary     Summary      `json:"summary" yaml:"summary" toml:"summary"`
	Failures    []Failure    `json:"failures,omitempty" yaml:"failures,omitempty" toml:"failures,omitempty"`
	Outcomes    []Outcome    `json:"outcomes" yaml:"outcomes" toml:"outcomes"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" toml:"diagnostics,omitempty"`
}

// Add accumulates one outcome.
func (r *RunReport) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusApplied:
		r.Summary.Applied++
		if o.Changed {
			r.Summary.Changed++
		}
	case StatusSkipped:
		r.Summary.Skipped++
	case StatusFailed:
		r.Summary.Failed++
		r.Failures = append(r.Failures, Failure{
			Rule:   o.Line,
			Path:   o.Path,
			Reason: o.Reason,
			Code:   string(o.Code),
		})
	}
}

// HasFailures reports whether any outcome failed.
func (r RunReport) HasFailures() bool {
	return r.Summary.Failed > 0
}

// HasDiagnostics reports whether the configuration produced any
// error-level diagnostics. Warnings do not count.
func (r RunReport) HasDiagnostics() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
