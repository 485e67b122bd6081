// Package task runs batches of independent jobs on a bounded pool of
// goroutines. A failing or panicking job is reported through an error
// handler and never stops the remaining jobs.
package task
