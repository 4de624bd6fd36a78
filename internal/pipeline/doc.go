// Package pipeline runs the batch jobs: it discovers inputs, processes each
// one in its own scratch workspace through probe, plan, render and join,
// and reports a summary.
//
// Items are independent. A failing item is logged and counted and the batch
// moves on; only a ResourceError (missing folder, nothing to process,
// unusable output directory) stops a batch before it starts.
package pipeline
