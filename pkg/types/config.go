package types

import (
	"github.com/arthur-debert/tmpfiles/pkg/errors"
)

// ConfigLayer is one configuration directory. Rank 0 has the highest
// precedence.
type ConfigLayer struct {
	Dir  string `json:"dir" yaml:"dir" toml:"dir"`
	Rank int    `json:"rank" yaml:"rank" toml:"rank"`
}

// SourceFile is a configuration file that won the masking resolution.
type SourceFile struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Path  string `json:"path" yaml:"path" toml:"path"`
	Layer int    `json:"layer" yaml:"layer" toml:"layer"`
	// Disabled files mask lower layers but contribute no rules.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
}

// MaskedFile is a configuration file hidden by a higher-precedence one.
type MaskedFile struct {
	Path string `json:"path" yaml:"path" toml:"path"`
	By   string `json:"by" yaml:"by" toml:"by"`
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a non-fatal problem found while loading configuration.
type Diagnostic struct {
	Source   Source           `json:"source" yaml:"source" toml:"source"`
	Severity Severity         `json:"severity" yaml:"severity" toml:"severity"`
	Code     errors.ErrorCode `json:"code" yaml:"code" toml:"code"`
	Message  string           `json:"message" yaml:"message" toml:"message"`
}

// NewDiagnostic builds an error diagnostic from err.
func NewDiagnostic(src Source, err error) Diagnostic {
	return Diagnostic{
		Source:   src,
		Severity: SeverityError,
		Code:     errors.GetErrorCode(err),
		Message:  err.Error(),
	}
}

// EffectiveConfig is the ordered rule list of one run.
type EffectiveConfig struct {
	Layers      []ConfigLayer `json:"layers" yaml:"layers" toml:"layers"`
	Files       []SourceFile  `json:"files" yaml:"files" toml:"files"`
	Masked      []MaskedFile  `json:"masked,omitempty" yaml:"masked,omitempty" toml:"masked,omitempty"`
	Rules       []Rule        `json:"-" yaml:"-" toml:"-"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" toml:"diagnostics,omitempty"`
}

// RulesFrom returns the rules loaded from the named file.
func (c EffectiveConfig) RulesFrom(name string) []Rule {
	var out []Rule
	for _, f := range c.Files {
		if f.Name != name {
			continue
		}
		for _, r := range c.Rules {
			if r.Source.File == f.Path {
				out = append(out, r)
			}
		}
	}
	return out
}
