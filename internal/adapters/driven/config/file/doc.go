// Package file loads the tap configuration from the local filesystem.
//
// Files ending in .toml are decoded with go-toml; anything else is decoded
// as JSON, the format Singer runners pass with --config. The set of
// top-level keys found in the file is recorded on the configuration, since
// query mode detection depends on key presence rather than list contents.
package file
