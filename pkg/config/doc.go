// Package config loads deltapack's settings.
//
// Settings come from embedded defaults, then an optional .deltapack.toml,
// deltapack.toml or .deltapack.yaml in the working directory, then
// DELTAPACK_ prefixed environment variables. Later sources win.
//
// Package definitions (the configuration document passed to pack) are not
// settings; see pkg/definitions.
package config
