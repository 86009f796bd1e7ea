// Package domain defines the core entities of the tap.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Stream: An immutable stream definition with its capability table (Hooks)
//   - Context: An immutable partition context
//   - Record: One extracted row
//   - Bookmark: The persisted replication state of a partition
//   - TapConfig: The tap configuration and its query mode
//   - Schema: The declared shape of a stream's records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
