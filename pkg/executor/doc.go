// Package executor runs the external tools deltapack depends on.
//
// A Runner starts one process and reports its captured output and exit code.
// The Toolbox builds on it with one runner per action type (cmd, msbuild,
// devenv, dotnet) plus the replay-time command runner, and classifies each
// tool's output as success or failure. Failures are *errors.Error values with
// code TOOL_EXECUTE whose message is the tool's own diagnostic text.
package executor
