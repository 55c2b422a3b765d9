// Package daemon composes the watcher, processing worker, and status
// server into a single lifecycle with flock-based locking to prevent
// multiple instances from fighting over the input directory.
package daemon
