// Package static is a hierarchy of files that are added to
// the generated emulator.
//
// The intention is that we can ship a number of binary CP/M
// files within our emulator, exposed beneath drive-letter
// subdirectories ("A", "B", ...) so they show up alongside
// whatever real host directories the emulator's drives map to.
package static

import "embed"

//go:embed A
var content embed.FS

// GetContent returns the embedded filesystem, containing whatever
// binaries have been bundled into this build.
func GetContent() embed.FS {
	return content
}

// GetEmptyContent returns an empty filesystem, used when the caller
// has asked for the embedded binaries to be disabled.
func GetEmptyContent() embed.FS {
	return embed.FS{}
}
