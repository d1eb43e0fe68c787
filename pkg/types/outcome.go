package types

import (
	"github.com/arthur-debert/tmpfiles/pkg/errors"
)

// Status is the result class of applying one rule.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the result of applying one rule in one phase.
type Outcome struct {
	Rule  Rule    `json:"-" yaml:"-" toml:"-"`
	Phase RunMode `json:"phase" yaml:"phase" toml:"phase"`

	Line   string `json:"rule" yaml:"rule" toml:"rule"`
	Source string `json:"source" yaml:"source" toml:"source"`

	Status Status `json:"status" yaml:"status" toml:"status"`
	// Changed is set when the filesystem was modified.
	Changed bool   `json:"changed" yaml:"changed" toml:"changed"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`

	// Path is the path the failure or skip refers to.
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	// Paths lists every path the rule touched.
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty" toml:"paths,omitempty"`

	Err   error            `json:"-" yaml:"-" toml:"-"`
	Error string           `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	Code  errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty" toml:"code,omitempty"`

	// Removed and Freed count entries and bytes deleted by clean/remove.
	Removed int   `json:"removed,omitempty" yaml:"removed,omitempty" toml:"removed,omitempty"`
	Freed   int64 `json:"freed,omitempty" yaml:"freed,omitempty" toml:"freed,omitempty"`
}

// NewOutcome starts an Applied, unchanged outcome for rule in phase.
func NewOutcome(rule Rule, phase RunMode) Outcome {
	return Outcome{
		Rule:   rule,
		Phase:  phase,
		Line:   rule.String(),
		Source: rule.Source.String(),
		Status: StatusApplied,
	}
}

// Touch records that path was modified.
func (o *Outcome) Touch(path string) {
	o.Changed = true
	o.Paths = append(o.Paths, path)
}

// Skip marks the outcome skipped unless it already failed.
func (o *Outcome) Skip(path, reason string) {
	if o.Status == StatusFailed {
		return
	}
	o.Status = StatusSkipped
	o.Path = path
	o.Reason = reason
}

// Fail records a failure. The first failure decides Path and Code; later
// ones are appended to the reason.
func (o *Outcome) Fail(path string, err error) {
	if o.Status == StatusFailed {
		o.Reason += "; " + err.Error()
		return
	}
	o.Status = StatusFailed
	o.Path = path
	o.Err = err
	o.Error = err.Error()
	o.Code = errors.GetErrorCode(err)
	o.Reason = err.Error()
}
