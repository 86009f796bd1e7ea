// Package cli implements the tap-github command line.
//
// Commands:
//
//	tap-github discover --config config.json
//	tap-github sync --config config.json [--state-dir DIR]
//	tap-github state list | runs | reset [stream]
//	tap-github version
//
// Singer messages are written to stdout. Logs, progress and summaries go
// to stderr.
package cli
