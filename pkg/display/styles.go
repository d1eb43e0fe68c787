package display

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color definitions using AdaptiveColor for automatic light/dark mode switching
var (
	SuccessColor = lipgloss.AdaptiveColor{Light: "#28A745", Dark: "#4CDD76"}
	ErrorColor   = lipgloss.AdaptiveColor{Light: "#DC3545", Dark: "#FF6B7D"}
	WarningColor = lipgloss.AdaptiveColor{Light: "#FFC107", Dark: "#FFD54F"}
	HeadingColor = lipgloss.AdaptiveColor{Light: "#212529", Dark: "#F8F9FA"}
	MutedColor   = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#A0A8B0"}
	PathColor    = lipgloss.AdaptiveColor{Light: "#007ACC", Dark: "#3D9EFF"}
)

// styles holds the lipgloss styles of one renderer. They are bound to the
// renderer's output so color detection follows the destination, not stdout.
type styles struct {
	heading lipgloss.Style
	changed lipgloss.Style
	applied lipgloss.Style
	skipped lipgloss.Style
	failed  lipgloss.Style
	path    lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, color bool) styles {
	if color {
		if r.ColorProfile() == termenv.Ascii {
			r.SetColorProfile(termenv.ANSI256)
		}
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return styles{
		heading: r.NewStyle().Foreground(HeadingColor).Bold(true),
		changed: r.NewStyle().Foreground(SuccessColor).Bold(true),
		applied: r.NewStyle().Foreground(SuccessColor),
		skipped: r.NewStyle().Foreground(WarningColor),
		failed:  r.NewStyle().Foreground(ErrorColor).Bold(true),
		path:    r.NewStyle().Foreground(PathColor),
		muted:   r.NewStyle().Foreground(MutedColor),
	}
}
