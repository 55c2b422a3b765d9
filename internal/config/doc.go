// Package config loads, validates, and normalizes vodmill's TOML
// configuration. Paths are tilde-expanded and made absolute during Load so
// the rest of the codebase never deals with relative or user-shorthand
// paths.
package config
