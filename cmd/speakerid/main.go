// Package main provides the speakerid CLI tool.
//
// Usage:
//
//	speakerid [flags] <command> [args]
//
// Commands:
//
//	enroll   - Enroll a speaker from WAV voice samples
//	identify - Identify the speaker in a WAV clip
//	profiles - List, inspect, deactivate, delete and export profiles
//	analyze  - Pairwise similarity report for a directory of samples
//	config   - Configuration management
//
// Configuration:
//
//	The CLI stores configuration under the OS user config directory,
//	e.g. ~/.config/speakerid/config.yaml on Linux, and supports
//	multiple contexts. Use 'speakerid config' commands to manage them.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/speakerid/cmd/speakerid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
