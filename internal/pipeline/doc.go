// Package pipeline implements the stage-gating and status-aggregation
// engine for conditional release runs.
//
// A run is a single, short-lived, linear evaluation triggered by one
// event. Five stages are gated and executed in a fixed topological order:
//
//	check_conflicts -> validate_metadata -> run_tests -> {create_pull_request | deploy}
//
// Gating is a pure function over the stage enable flags, the run's
// canonical parameters, and upstream outcomes; it never consults ambient
// state. Skipped predecessors satisfy their dependents, failed ones block
// them. The aggregator reduces all outcomes into one verdict with a fixed
// first-match-wins resolution order, so the originating failure always
// names the verdict even when it knocked out later stages too.
//
// Executors are external collaborators (the platform CLI, the
// version-control host). The runner maps any failure to return an outcome
// (crash, missing registration) to a stage failure, never to a skip.
package pipeline
