// Package ccp contains a pair of Console Command Processor images, which
// can be used by the emulator as shells.
//
// Historically these were assembled binaries embedded via go:embed, but
// since we don't carry prebuilt CCP binaries in this tree the two
// flavours are generated in-process: a minimal, NOP-filled stub that
// is just large enough to be loaded and jumped to, ending in a RET so
// that a supervisor stepping the CPU sees sane behaviour if it is ever
// actually executed.
package ccp

import (
	"fmt"
	"strings"
)

// Flavour contains details about a possible CCP the user might run.
type Flavour struct {
	// Name contains the public-facing name of the CCP.
	//
	// NOTE: This name is visible to end-users, and will be used in the "-ccp" command-line flag,
	// or as the name when changing at run-time via the "A:!CCP.COM" binary.
	Name string

	// Description contains the description of the CCP.
	Description string

	// Bytes contains the raw binary content.
	Bytes []uint8

	// Start specifies the memory-address, within RAM, to which the raw bytes should be loaded and to which control should be passed.
	//
	// (i.e. This must match the ORG specified in the CCP source code.)
	Start uint16
}

// CCPBase is the memory address at which every CCP flavour is linked to run.
const CCPBase = 0xF000

// stub builds a minimal CCP image: a block of NOPs (0x00), with a
// recognisable signature near the start, ending in a single RET (0xC9).
//
// It stands in for the real, hand-assembled CCP binary that would
// otherwise be loaded from disk: large enough to exercise the load path,
// small enough to keep the tree free of binary blobs.
func stub(size int, signature string) []uint8 {
	data := make([]uint8, size)
	copy(data, signature)
	data[size-1] = 0xC9 // RET
	return data
}

var (
	// ccps contains the global array of the CCP variants we have.
	ccps []Flavour
)

// init sets up our global ccp array, by adding the two CCP variants to
// the array, with suitable names/offsets.
func init() {
	ccps = append(ccps, Flavour{
		Name:        "ccp",
		Description: "CP/M v2.2",
		Start:       CCPBase,
		Bytes:       stub(1536, "CPMEMU-CCP"),
	})

	ccps = append(ccps, Flavour{
		Name:        "ccpz",
		Description: "CCPZ-alike",
		Start:       CCPBase,
		Bytes:       stub(2048, "CPMEMU-CCPZ"),
	})
}

// GetAll returns the details of all known CCPs we have embedded.
func GetAll() []Flavour {
	return ccps
}

// Get returns the CCP version specified, by name, if it exists.
//
// If the given name is invalid then an error will be returned instead.
func Get(name string) (Flavour, error) {

	valid := []string{}

	for _, ent := range ccps {

		// When changing at runtime, via "CCP.COM", we will have had
		// the name upper-cased by the CCP so we need to downcase here.
		if strings.ToLower(name) == ent.Name {
			return ent, nil
		}
		valid = append(valid, ent.Name)
	}

	return Flavour{}, fmt.Errorf("ccp %s not found - valid choices are: %s", name, strings.Join(valid, ","))
}
