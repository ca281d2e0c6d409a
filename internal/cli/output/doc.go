// Package output provides output formatting for the snapdist CLI.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: tabwriter-backed table rendering
//   - json.go: JSON output for scripting
package output
