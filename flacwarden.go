// Package flacwarden fingerprints, re-encodes and integrity-tests FLAC
// files by driving the flac and metaflac command-line tools.
package flacwarden

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/deixis/flacwarden.Version=...".
var Version = "v0.1.0-dev"
