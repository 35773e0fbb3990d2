// Package cli provides shared plumbing for the speakerid command-line
// tool.
//
// This package includes:
//   - Configuration management with named contexts, so one machine can
//     switch between engine setups (local simulation, staging service,
//     production service)
//   - Output formatting (YAML, JSON)
//   - Terminal styles and simple table rendering
//
// Configuration lives in a single YAML file, by default
// <user config dir>/speakerid/config.yaml, overridable with the
// SPEAKERID_CONFIG environment variable.
package cli
