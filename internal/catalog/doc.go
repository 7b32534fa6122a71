// Package catalog persists movie records in SQLite and exposes the status
// state machine that tracks each movie's transcoding lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stale-attempt recovery, and the
// compare-and-swap status transitions (uploaded -> processing -> ready or
// failed). Lifecycle fields move only through the transition methods in
// store_transitions.go; Update covers metadata edits exclusively, so no
// caller can bypass the state machine by accident.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add columns, update schema.sql and bump schemaVersion.
package catalog
