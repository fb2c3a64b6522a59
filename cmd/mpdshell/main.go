// =============================================================================
// main.go - mpdshell Entry Point
// =============================================================================
//
// mpdshell is an interactive shell for the Music Player Daemon protocol. It
// connects to an MPD server, sends whatever protocol commands the user types,
// and prints every reply as it arrives. Lines starting with "!" are handled
// locally (help, script execution, connection info).
//
// Usage:
//
//	mpdshell                       Connect to localhost:6600
//	mpdshell music.lan -p 6601     Connect to another host and port
//	mpdshell --ui repl < cmds.txt  Feed commands from a pipe
//
// The command tree lives in root.go; the two front ends are the full-screen
// UI in internal/tui and the line-oriented REPL in repl.go.
//
// =============================================================================

package main

import (
	"fmt"
	"os"
)

// Version information.
const (
	appName = "mpdshell"

	// version is bumped by hand on release.
	version = "0.3.0"
)

// fullTitle returns the application name with version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

// printError prints an error message to stderr.
func printError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
