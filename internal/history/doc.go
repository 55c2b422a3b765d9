// Package history keeps a SQLite audit trail of finished jobs.
package history
