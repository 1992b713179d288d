// Package workflow orchestrates pipeline execution: claiming pending media
// records, sequencing stage executors, heartbeating live runs, and landing
// records in terminal states.
package workflow
