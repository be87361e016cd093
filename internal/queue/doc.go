// Package queue owns the persisted upload queue: the record model, the
// lenient record codec, and the manager that drives records through the
// upload transport one at a time.
package queue
