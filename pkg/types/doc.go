// Package types defines the data model shared by the packing and unpacking
// engines: package definitions, their variables, actions and rules, the
// condition sum type and the resolved variable environment.
//
// Definitions are decoded eagerly. Unknown rule modes, action types and
// condition shapes are configuration errors at load time rather than
// silently evaluating to false.
package types
