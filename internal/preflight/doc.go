// Package preflight validates the environment before the daemon starts
// accepting work.
package preflight
