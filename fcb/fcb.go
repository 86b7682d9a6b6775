// Package FCB contains helpers for reading, writing, and working with the CP/M FCB structure.
package fcb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SIZE is the on-disk/in-memory byte width of a CP/M FCB entry.
const SIZE = 36

// blkSize is the size, in bytes, of a single logical CP/M record.
const blkSize = 128

// extentRecords is the number of 128-byte records held by one extent (16KiB).
const extentRecords = 128

// Find describes a single directory-search match: the name CP/M sees
// alongside the real path on the host filesystem it resolves to.
type Find struct {
	// Host is the path to the matched file on the host filesystem.
	Host string
	// Name is the (unmapped) filename as CP/M would show it.
	Name string
}

// FCB is a placeholder struct which is slowly in the process of being used.
type FCB struct {
	// Drive holds the drive letter for this entry.
	Drive uint8

	// Name holds the name of the file.
	Name [8]uint8

	// Type holds the suffix.
	Type [3]uint8

	Ex uint8
	S1 uint8
	S2 uint8
	RC uint8
	Al [16]uint8
	Cr uint8 // FCB_CURRENT_RECORD_OFFSET
	R0 uint8 // FCB_RANDOM_RECORD_OFFSET
	R1 uint8
	R2 uint8
}

// GetName returns the name component of an FCB entry.
func (f *FCB) GetName() string {
	t := ""

	for _, c := range f.Name {
		if c != 0x00 {
			t += string(c)
		}
	}
	return strings.TrimSpace(t)
}

// GetType returns the type/extension component of an FCB entry.
func (f *FCB) GetType() string {
	t := ""

	for _, c := range f.Type {
		if c != 0x00 {
			t += string(c)
		}
	}
	return strings.TrimSpace(t)
}

// AsBytes returns the entry of the FCB in a format suitable
// for copying to RAM.
func (f *FCB) AsBytes() []uint8 {

	var r []uint8

	r = append(r, f.Drive)
	r = append(r, f.Name[:]...)
	r = append(r, f.Type[:]...)
	r = append(r, f.Ex)
	r = append(r, f.S1)
	r = append(r, f.S2)
	r = append(r, f.RC)
	r = append(r, f.Al[:]...)
	r = append(r, f.Cr)
	r = append(r, f.R0)
	r = append(r, f.R1)
	r = append(r, f.R2)

	return r
}

// FromString returns an FCB entry from the given string.
//
// This is currently just used for processing command-line arguments.
func FromString(str string) FCB {

	// Return value
	tmp := FCB{}

	// Filenames are always upper-case
	str = strings.ToUpper(str)

	// Does the string have a drive-prefix?
	if len(str) > 2 && str[1] == ':' {
		tmp.Drive = str[0] - 'A'
		str = str[2:]
	} else {
		tmp.Drive = 0x00
	}

	// Suffix defaults to "   "
	copy(tmp.Type[:], "   ")

	// Now we have to parse the string.
	//
	// 1. is there a suffix?
	parts := strings.Split(str, ".")

	// No suffix?
	if len(parts) == 1 {
		t := ""

		// pad the value
		name := parts[0]
		for len(name) < 8 {
			name += " "
		}

		// process to change "*" to "????"
		for _, c := range name {
			if c == '*' {
				t += "?????????"
				break
			} else {
				t += string(c)
			}
		}

		// Copy the result into place, noting that copy will truncate
		copy(tmp.Name[:], t)
	}
	if len(parts) == 2 {
		t := ""

		// pad the value
		name := parts[0]
		for len(name) < 8 {
			name += " "
		}

		// process to change "*" to "????"
		for _, c := range name {
			if c == '*' {
				t += "?????????"
				break
			} else {
				t += string(c)
			}
		}

		// Copy the result into place, noting that copy will truncate
		copy(tmp.Name[:], t)

		// pad the value
		ext := parts[1]
		for len(ext) < 3 {
			ext += " "
		}

		// process to change "*" to "????"
		t = ""
		for _, c := range ext {
			if c == '*' {
				t += "???"
				break
			} else {
				t += string(c)
			}
		}

		// Copy the result into place, noting that copy will truncate
		copy(tmp.Type[:], t)
	}

	return tmp
}

// GetFileName returns the "NAME.TYP" form of the entry, suitable for use
// as a glob pattern or a host filename (drive letter excluded).
func (f *FCB) GetFileName() string {
	name := f.GetName()
	if name == "" {
		return ""
	}
	typ := f.GetType()
	if typ == "" {
		return name
	}
	return name + "." + typ
}

// GetCacheKey returns a key uniquely identifying the file this FCB refers
// to, independent of its current extent/record-pointer fields, suitable
// for use as a map key for tracking open file handles.
func (f *FCB) GetCacheKey() string {
	return fmt.Sprintf("%d:%s", f.Drive, f.GetFileName())
}

// GetSequentialOffset returns the byte offset of the next sequential
// record to be read or written, derived from Ex/S2/Cr.
func (f *FCB) GetSequentialOffset() int64 {
	record := int64(f.Cr) + int64(f.Ex)*extentRecords + int64(f.S2&0x3F)*32*extentRecords
	return record * blkSize
}

// SetSequentialOffset updates Ex/S2/Cr so that the next sequential
// record read or written will be found at the given byte offset.
func (f *FCB) SetSequentialOffset(offset int64) {
	record := offset / blkSize
	f.Cr = uint8(record % extentRecords)
	record /= extentRecords
	f.Ex = uint8(record % 32)
	f.S2 = uint8((record / 32) & 0x3F)
}

// GetRandomOffset returns the random record number encoded across R0/R1/R2.
func (f *FCB) GetRandomOffset() int64 {
	return int64(f.R0) + int64(f.R1)<<8 + int64(f.R2)<<16
}

// SetRandomOffset encodes the given record number across R0/R1/R2.
func (f *FCB) SetRandomOffset(records int64) {
	f.R0 = uint8(records & 0xFF)
	f.R1 = uint8((records >> 8) & 0xFF)
	f.R2 = uint8((records >> 16) & 0xFF)
}

// DoesMatch reports whether the given (unmapped) host filename matches
// this FCB's Name/Type pattern, treating '?' bytes in the pattern as
// wildcards.
func (f *FCB) DoesMatch(name string) bool {
	other := FromString(name)

	for i := 0; i < len(f.Name); i++ {
		if f.Name[i] == '?' {
			continue
		}
		if f.Name[i] != other.Name[i] {
			return false
		}
	}
	for i := 0; i < len(f.Type); i++ {
		if f.Type[i] == '?' {
			continue
		}
		if f.Type[i] != other.Type[i] {
			return false
		}
	}
	return true
}

// GetMatches returns every file beneath dir whose name matches this FCB's
// wildcard pattern.
func (f *FCB) GetMatches(dir string) ([]Find, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Find
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if f.DoesMatch(e.Name()) {
			out = append(out, Find{Host: filepath.Join(dir, e.Name()), Name: e.Name()})
		}
	}
	return out, nil
}

// dirEntrySize is the width of one slot within a CP/M directory sector:
// four 32-byte entries pack into a single 128-byte DMA record.
const dirEntrySize = 32

// deletedMarker is the byte CP/M uses at the start of a directory slot
// to mark it as unused/deleted.
const deletedMarker = 0xE5

// AsDirectoryEntry renders this FCB's name and extension as the 32-byte
// directory-entry slot a successful SEARCH_FIRST/SEARCH_NEXT reports:
// byte 0 is the owning user number, bytes 1..11 are the name and
// extension masked to 7 bits, and the remaining bytes are zeroed.
func (f *FCB) AsDirectoryEntry(user uint8) []uint8 {
	entry := make([]uint8, dirEntrySize)
	entry[0] = user
	for i, c := range f.Name {
		entry[1+i] = c & 0x7F
	}
	for i, c := range f.Type {
		entry[9+i] = c & 0x7F
	}
	return entry
}

// DirectoryRecord builds the full 128-byte DMA payload a search result is
// copied into: this FCB's directory-entry slot for the owning user,
// followed by three deleted-marker slots, since only the first of the
// four slots a directory sector can hold is ever reported.
func (f *FCB) DirectoryRecord(user uint8) []uint8 {
	record := make([]uint8, 0, blkSize)
	record = append(record, f.AsDirectoryEntry(user)...)
	for i := 0; i < 3; i++ {
		slot := make([]uint8, dirEntrySize)
		slot[0] = deletedMarker
		record = append(record, slot...)
	}
	return record
}

// FromBytes returns an FCB entry from the given bytes
func FromBytes(bytes []uint8) FCB {
	// Return value
	tmp := FCB{}

	tmp.Drive = bytes[0]
	copy(tmp.Name[:], bytes[1:])
	copy(tmp.Type[:], bytes[9:])
	tmp.Ex = bytes[12]
	tmp.S1 = bytes[13]
	tmp.S2 = bytes[14]
	tmp.RC = bytes[15]
	copy(tmp.Al[:], bytes[16:])
	tmp.Cr = bytes[32]
	tmp.R0 = bytes[33]
	tmp.R1 = bytes[34]
	tmp.R2 = bytes[35]

	return tmp
}
