package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent    = 74  // blue
	colorCmd       = 250 // light gray
	colorMuted     = 245 // medium gray
	colorMatched   = 114 // green
	colorUnmatched = 255 // white
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderMatched returns s in the matched (green) color.
func RenderMatched(s string) string { return render(colorMatched, s) }

// RenderUnmatched returns s in the unmatched (white) color.
func RenderUnmatched(s string) string { return render(colorUnmatched, s) }

// RenderBarColor renders s in the terminal color for a status feed bar
// color name ("green" or "white"). Unknown names are returned unstyled.
func RenderBarColor(color, s string) string {
	switch color {
	case "green":
		return RenderMatched(s)
	case "white":
		return RenderUnmatched(s)
	default:
		return s
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
