// Package repository provides a metadata-driven generic repository for CRUD
// operations, counting, pagination, and ambient transaction participation,
// resolved from an entity name on first use.
package repository
