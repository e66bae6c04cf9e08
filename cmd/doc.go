// Package cmd implements the command-line interface for mailexport.
//
// This package provides the following commands:
//   - export: Export sender and subject of matching messages to CSV
//   - labels: List the labels of the mailbox
//   - version: Display version information
//
// The export command is the default command when no subcommand is specified,
// so `mailexport -q "from:alice"` and `mailexport export -q "from:alice"` are
// equivalent.
package cmd
