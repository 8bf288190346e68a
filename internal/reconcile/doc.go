// Package reconcile turns two independently extracted sets of bank
// statement transactions into comparable, date-aligned aggregate metrics and
// decides whether they agree.
//
// Every function here is pure: inputs are never mutated, nothing is cached
// and no I/O is performed, so independent reconciliations may run
// concurrently without coordination.
//
// The pipeline is
//
//	Normalize -> MergeAccounts -> IntersectDateRange -> Compare
//
// where Compare builds per-account end-of-day balance series (EODBalances),
// averages them over each account's own trailing window
// (TrailingAverageEOD) and checks four rounded metrics for equality.
package reconcile
