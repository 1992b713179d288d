// Package daemon hosts the long-running clipsight process: single-instance
// locking, the workflow manager lifecycle, and the HTTP API.
package daemon
