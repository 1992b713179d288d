// Package stages implements the pipeline stage executors. Each executor
// wraps one capability or tool invocation and persists exactly one artifact
// type; the workflow manager sequences them per media kind.
package stages
