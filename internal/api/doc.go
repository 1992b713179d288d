// Package api defines the daemon's HTTP wire types and the client used by
// the command-line tools.
package api
