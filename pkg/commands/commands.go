// Package commands provides the command implementations behind the CLI.
//
// Each command is implemented in its own subdirectory:
//   - pack/     - Pack: pack every definition of a configuration document
//   - unpack/   - Unpack: replay a manifest and its content store
//   - validate/ - Validate: load and resolve a configuration document
//   - list/     - List: summarize the definitions of a document
//
// This file re-exports the command functions so callers only import one
// package.
package commands

import (
	"context"

	"github.com/arthur-debert/deltapack/pkg/commands/list"
	"github.com/arthur-debert/deltapack/pkg/commands/pack"
	"github.com/arthur-debert/deltapack/pkg/commands/unpack"
	"github.com/arthur-debert/deltapack/pkg/commands/validate"
)

// PackOptions configures Pack
type PackOptions = pack.PackOptions

// Pack packs the definitions of a configuration document.
func Pack(ctx context.Context, opts PackOptions) (*pack.PackResult, error) {
	return pack.Pack(ctx, opts)
}

// UnpackOptions configures Unpack
type UnpackOptions = unpack.UnpackOptions

// Unpack replays a manifest into an output folder.
func Unpack(ctx context.Context, opts UnpackOptions) (*unpack.UnpackResult, error) {
	return unpack.Unpack(ctx, opts)
}

// ValidateOptions configures Validate
type ValidateOptions = validate.ValidateOptions

// Validate checks a configuration document without running it.
func Validate(opts ValidateOptions) (*validate.ValidateResult, error) {
	return validate.Validate(opts)
}

// ListOptions configures List
type ListOptions = list.ListOptions

// List summarizes the definitions of a configuration document.
func List(opts ListOptions) (*list.ListResult, error) {
	return list.List(opts)
}
