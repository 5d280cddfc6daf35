// Package style renders deltapack's user-facing progress output.
//
// Styles are defined in the embedded styles.yaml by semantic name (Package,
// Action, Warning, ...) and built into lipgloss styles bound to the output
// writer, so colors are dropped automatically when the writer is not a
// terminal. Console turns packing and unpacking events into the progress
// lines of the command line interface.
package style
