// Package converge keeps the desired port connections present in the
// JACK graph.
//
// The Engine walks the desired pairs once per pass and connects whatever is
// missing. The Binding drives the engine from runtime notifications: one pass
// on activation and one pass for every topology change.
package converge
