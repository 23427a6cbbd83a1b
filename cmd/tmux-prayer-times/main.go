// Command tmux-prayer-times prints the next prayer as one line for a status bar.
//
// It runs the prayer-times "next" command with a status-bar friendly default
// format, sharing its settings, cache and flags:
//
//	set -g status-right '#(tmux-prayer-times --format short-name-and-remaining)'
package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/smokyabdulrahman/masjid-times/internal/cli"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run maps the status-bar flags onto the CLI and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if slices.Contains(args, "--version") || slices.Contains(args, "-version") {
		fmt.Fprintf(stdout, "tmux-prayer-times %s\n", version)
		return 0
	}

	var cmdArgs []string
	switch {
	case slices.Contains(args, "--list-methods"):
		cmdArgs = []string{"methods"}
	default:
		// Flags given later win, so --format in args overrides the default.
		cmdArgs = append([]string{"next", "--format", prayer.FormatNameAndTime}, args...)
	}

	root := cli.NewRootCmd(version)
	root.SetArgs(cmdArgs)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
