// Package jobstate holds the in-memory record of the active pipeline job.
// The store is the only state shared between the worker (writer) and the
// status server (reader); reads return copies so no caller ever observes a
// partially applied mutation.
package jobstate
