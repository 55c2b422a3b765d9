// Package pipeline contains the job queue, the single worker that drains
// it, and the driver that sequences the processing stages for one file.
// The driver reports each stage boundary through the status event emitter
// with fixed checkpoint percents.
package pipeline
