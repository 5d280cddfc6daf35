// Package paths provides the path handling shared by the packer and the
// replay engine.
//
// It handles:
//
//   - Normalization of user supplied folders (home expansion, absolute, clean)
//   - Destination-relative manifest paths, always "/" separated
//   - Anchored, case-insensitive glob matching of rule patterns and excludes
//   - Detection of case-insensitive filesystems, probed once per device
//
// # Glob matching
//
// Patterns are anchored by prefixing "/" when absent and matched against the
// anchored, slash separated candidate with doublestar semantics, so "**/*"
// matches every file and "/bin/*.dll" only files directly under bin.
//
//	paths.MatchGlob("**/*.config", "web/app.config") // true
//	paths.MatchAny([]string{"obj/**"}, "obj/x.dll")  // true
//
// # Case sensitivity
//
// CaseProbe answers IsPathComparisonCaseSensitive by comparing a path with its
// case-flipped counterpart. The answer is cached per filesystem device for
// the life of the probe.
package paths
