// Package core is the reconciliation driver of tmpfiles.
//
// Load builds the effective configuration once per run: it probes the
// host for specifier values, merges the configuration layers and parses
// every line. Reconcile then walks the rules phase by phase and hands each
// eligible rule to the executor, collecting the outcomes into a report.
//
// # Phases
//
// A run selects any combination of the remove, create and clean phases.
// They always execute in that order, and within a phase rules execute in
// configuration order. Which rule takes part in which phase is decided by
// the Eligibility table:
//
//	f w p L c b C z Z t T h H a A   create
//	d v q Q e                       create, clean
//	D                               create, clean, remove
//	r R                             remove
//	x X                             none (clean exclusions)
//
// Clean only considers rules with an age.
//
// # Failure handling
//
// The run is best effort. A failed rule is recorded in the report and the
// next rule runs. Only cancellation of the context stops a run, and it is
// checked between rules.
package core
