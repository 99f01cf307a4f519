// Package metadata is the process-wide catalog of declared entities, tables,
// and extension types. It supports exact and type-indexed lookup, change
// notifications, and recomputation of derived metadata when its sources
// change, plus a JSON interop format for external tooling.
package metadata
