/*
Package observability provides monitoring for the engine.

It implements the EventSink port over Prometheus collectors: execution counts,
durations, suspensions and terminations per flow and action kind.
*/
package observability
