package display

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Renderer is the common interface for all output renderers
type Renderer interface {
	// RenderReport renders the result of a reconciliation run
	RenderReport(report types.RunReport) error

	// RenderError renders an error with appropriate formatting
	RenderError(err error) error
}

// Options controls how reports are rendered
type Options struct {
	Format Format
	// Color enables styling of text output
	Color bool
	// Verbose also lists rules that were applied without changes
	Verbose bool
}

// NewRenderer creates a new renderer based on the specified format
func NewRenderer(w io.Writer, opts Options) (Renderer, error) {
	switch opts.Format {
	case FormatText:
		return &textRenderer{
			w:       w,
			styles:  newStyles(lipgloss.NewRenderer(w), opts.Color),
			verbose: opts.Verbose,
		}, nil
	case FormatJSON:
		return &structuredRenderer{w: w, marshal: func(v interface{}) ([]byte, error) {
			out, err := json.MarshalIndent(v, "", "  ")
			return append(out, '\n'), err
		}}, nil
	case FormatYAML:
		return &structuredRenderer{w: w, marshal: yaml.Marshal}, nil
	case FormatTOML:
		return &structuredRenderer{w: w, marshal: toml.Marshal}, nil
	default:
		return nil, fmt.Errorf("unknown format: %v", opts.Format)
	}
}

// structuredRenderer writes reports in a machine readable encoding
type structuredRenderer struct {
	w       io.Writer
	marshal func(interface{}) ([]byte, error)
}

func (r *structuredRenderer) RenderReport(report types.RunReport) error {
	return r.write(report)
}

func (r *structuredRenderer) RenderError(err error) error {
	return r.write(errorDocument{
		Error: err.Error(),
		Code:  string(errors.GetErrorCode(err)),
	})
}

func (r *structuredRenderer) write(v interface{}) error {
	data, err := r.marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode output")
	}
	_, err = r.w.Write(data)
	return err
}

type errorDocument struct {
	Error string `json:"error" yaml:"error" toml:"error"`
	Code  string `json:"code" yaml:"code" toml:"code"`
}
