// Package database provides connection management, configuration types,
// logging, health checks, error classification, and the relational query
// executor the repositories perform all I/O through, built on top of Bun.
package database
