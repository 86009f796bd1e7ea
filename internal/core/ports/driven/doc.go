// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Transport: Performs one authenticated API request (GitHub client)
//   - RecordSink: Receives SCHEMA, RECORD and STATE messages (Singer writer)
//   - StateStore: Bookmark persistence (SQLite)
//
// # Optional Interfaces
//
// These can be nil:
//
//   - RunLog: History of sync runs. Without it, runs are not recorded.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
