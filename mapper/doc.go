// Package mapper builds and caches the per-entity attribute↔column name
// correspondence and performs value-level type conversion in both
// directions, including exact decimal and date handling.
package mapper
