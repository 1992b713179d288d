// Package services provides shared error classification and context
// annotation used by capability clients and stage executors.
package services
