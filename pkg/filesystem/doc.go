// Package filesystem provides the types.FS implementations used when
// replaying manifests: the OS filesystem and an afero-backed one that tests
// run against an in-memory tree. It also holds the atomic temp-and-rename
// writer used for packing artifacts.
package filesystem
