// Package executor applies a single configuration rule to the live
// filesystem and reports what happened.
//
// Every call to Apply handles one rule in one phase and returns exactly one
// Outcome. Failures are recorded in the Outcome rather than returned, so a
// bad path never stops the rest of a run. All filesystem access goes through
// the injected types.Env, which makes the executor usable against an image
// root (--root) and against the in-memory filesystem in tests.
package executor
