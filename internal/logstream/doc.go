// Package logstream fans progress log appends and terminal status changes
// out to live subscribers, backed by the durable per-media log in the store.
package logstream
