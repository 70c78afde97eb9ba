// Package engine provides the asynchronous simulation execution engine.
// It dispatches each submitted simulation to its own goroutine, walks the
// simulator through the stage pipeline while polling the per-job stop
// controller, reports clamped progress into the registry, and commits the
// terminal status exactly once on every exit path.
package engine
