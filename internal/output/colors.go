package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Header    *color.Color
	ID        *color.Color
	Progress  *color.Color
	Success   *color.Color
	Failure   *color.Color
	Warning   *color.Color
	Dim       *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Header:    color.New(color.FgCyan, color.Bold),
		ID:        color.New(color.FgBlue),
		Progress:  color.New(color.FgMagenta, color.Bold),
		Success:   color.New(color.FgGreen),
		Failure:   color.New(color.FgRed, color.Bold),
		Warning:   color.New(color.FgYellow),
		Dim:       color.New(color.Faint),
		Highlight: color.New(color.FgWhite, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

// forcedColorScheme enables every color even when fatih/color decided the
// process is not attached to a terminal.
func forcedColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.EnableColor()
	}
	return scheme
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Header, s.ID, s.Progress, s.Success, s.Failure, s.Warning, s.Dim, s.Highlight}
}

// SuccessIcon returns a checkmark symbol with appropriate color
func (s *ColorScheme) SuccessIcon() string {
	return s.Success.Sprint("✓")
}

// FailureIcon returns an X symbol with appropriate color
func (s *ColorScheme) FailureIcon() string {
	return s.Failure.Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color
func (s *ColorScheme) WarningIcon() string {
	return s.Warning.Sprint("⚠")
}
