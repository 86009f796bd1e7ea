// Package services implements the driving port interfaces.
//
// The sync pipeline is built from small pieces: ResolveStreams picks the
// streams of the active query mode, PlanPartitions derives the root
// partitions, and the Driver walks each partition through its pages,
// emitting records, advancing bookmarks and running child partitions for
// every parent record. SyncOrchestrator wires them together.
//
// Services are pure Go and talk to the outside world only through the
// driven ports.
package services
