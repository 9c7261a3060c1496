// Package trace implements the background trace producer and the trace
// history that status windows read when they open.
//
// The Producer publishes a messages.Trace after every random sleep until
// it observes a stop request. It checks the stop flag once per cycle, so
// shutdown latency is bounded by the maximum interval.
package trace
