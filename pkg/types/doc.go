// Package types defines the core types shared by the tmpfiles engine.
// This includes the Rule data model and its Kind enumeration, the
// EffectiveConfig produced by the layer merger, the Outcome and RunReport
// produced by reconciliation, and the FS/Env interfaces that inject the
// live filesystem, clock and identity resolution into every component.
package types
