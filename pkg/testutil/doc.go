// Package testutil provides helpers for testing deltapack components.
//
// Key components:
//   - File helpers: create, read and assert on files in temp directories
//   - Tree snapshots: compare whole directory trees by relative path
//   - Git fixtures: throwaway repositories driven through the git CLI
//   - Memory filesystems: afero-backed types.FS seeded from a map
//
// Tests that need git call RequireGit, which skips when the binary is absent.
package testutil
