// Package definitions loads configuration documents: the JSON (or YAML)
// array of package definitions consumed by the pack driver.
//
// Documents are validated against an embedded JSON Schema before they are
// decoded, so structural mistakes are reported with the offending location
// instead of a generic decode error. Decoding then turns rules, actions and
// conditions into the closed types of pkg/types and runs their validation.
package definitions
