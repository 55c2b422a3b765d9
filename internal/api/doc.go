// Package api serves the daemon's job state over HTTP for dashboards and
// the vodmill status command.
package api
