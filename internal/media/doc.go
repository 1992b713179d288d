// Package media defines the media record data model and its SQLite-backed
// store: records, append-only progress logs, and per-run artifacts
// (transcripts, keyframes, analyses).
package media
