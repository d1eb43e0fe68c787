// Package testutil provides utilities for testing tmpfiles components.
//
// Key components:
//   - TestEnvironment: wires a filesystem, a fake clock, an identity table
//     and a configuration filesystem together
//   - MemoryFS: In-memory types.FS implementation for fast, isolated tests,
//     with controllable timestamps, devices and error injection
//   - StaticIdentity: name to id table standing in for the user database
//
// Usage guidelines:
//   - Most tests should use EnvMemoryOnly for speed and isolation
//   - Only pkg/filesystem tests should rely on real syscalls
//   - All test data should be defined inline, not in external files
package testutil
