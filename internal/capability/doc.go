// Package capability defines the narrow interfaces stage executors depend
// on (transcription, vision description, synthesis) and their HTTP-backed
// implementations.
package capability
