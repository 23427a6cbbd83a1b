// Package display renders prayer times for the terminal.
//
// Styling goes through a lipgloss renderer bound to stdout. Colors follow
// NO_COLOR (https://no-color.org/) and FORCE_COLOR, and are otherwise on only
// when stdout is a terminal.
package display

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	mu       sync.RWMutex
	renderer = lipgloss.NewRenderer(os.Stdout)
	enabled  bool
)

func init() {
	SetEnabled(shouldEnable())
}

// shouldEnable determines whether to use color output.
func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	return isTerminal(os.Stdout)
}

// isTerminal reports whether f is connected to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SetEnabled overrides the auto-detected color state.
// --json and --no-color force plain output through it.
func SetEnabled(b bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = b
	if b {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
}

// Enabled reports whether color output is currently active.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func render(s lipgloss.Style, text string) string {
	if !Enabled() {
		return text
	}
	return s.Render(text)
}

// Bold returns text rendered in bold.
func Bold(text string) string {
	return render(renderer.NewStyle().Bold(true), text)
}

// Dim returns text rendered faint.
func Dim(text string) string {
	return render(renderer.NewStyle().Faint(true), text)
}

// Green returns text rendered in green.
func Green(text string) string {
	return render(renderer.NewStyle().Foreground(lipgloss.Color("2")), text)
}

// Yellow returns text rendered in yellow.
func Yellow(text string) string {
	return render(renderer.NewStyle().Foreground(lipgloss.Color("3")), text)
}

// Cyan returns text rendered in cyan.
func Cyan(text string) string {
	return render(renderer.NewStyle().Foreground(lipgloss.Color("6")), text)
}

// Gray returns text rendered in gray (bright black).
func Gray(text string) string {
	return render(renderer.NewStyle().Foreground(lipgloss.Color("8")), text)
}

// Accent highlights the next prayer.
func Accent(text string) string {
	return render(renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("6")), text)
}

// Boldf formats and bolds a string.
func Boldf(format string, a ...any) string {
	return Bold(fmt.Sprintf(format, a...))
}
