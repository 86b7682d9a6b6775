package cpm

import (
	"fmt"
	"os"
)

// File is the subset of *os.File that writing a byte to the emulated
// printer device needs - narrowed to an interface so tests can substitute
// a fake that fails write/close on demand.
type File interface {
	Write([]byte) (int, error)
	Close() error
}

// opener creates the backing file for printer output.  Tests may replace
// this package variable to exercise the write/close failure paths without
// touching the real filesystem.
var opener = func(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

// prnC appends a single character to the host file standing in for the
// CP/M printer device; both BDOS L_WRITE and BIOS LIST funnel through here.
func (cpm *CPM) prnC(char uint8) error {

	f, err := opener(cpm.prnPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("prnC: opening %s: %w", cpm.prnPath, err)
	}

	if _, err := f.Write([]byte{char}); err != nil {
		return fmt.Errorf("prnC: writing to %s: %w", cpm.prnPath, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("prnC: closing %s: %w", cpm.prnPath, err)
	}

	return nil
}
