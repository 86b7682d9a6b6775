// Package consolein handles the reading of console input for our emulator.
//
// The package supports the minimum required functionality we need - which
// boils down to reading a single character of input, with and without
// echo, and reading a line of text - behind a registry of pluggable,
// named drivers (mirroring the consoleout package).
//
// Note that no output functions are handled by this package, it is
// exclusively used for input.
package consolein

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrInterrupted is returned by ReadLine when the user has pressed
// Ctrl-C twice in a row, which CP/M programs treat as an abort.
var ErrInterrupted = errors.New("input interrupted")

// ErrShowOutput is returned by ReadLine when a host command was executed
// via the host-exec escape-hatch; the returned string holds the command's
// output, which the caller must display before retrying the read.
var ErrShowOutput = errors.New("show output and retry")

// ConsoleInput is the interface that must be implemented by anything that
// wishes to be used as a console input driver.
//
// Providing this interface is implemented an object may register itself,
// by name, via the Register method.
type ConsoleInput interface {
	// Setup performs any setup the driver requires.
	Setup() error

	// TearDown performs any cleanup the driver requires.
	TearDown() error

	// PendingInput returns true if a character is available to read
	// without blocking.
	PendingInput() bool

	// BlockForCharacterNoEcho returns the next character from the
	// console, blocking until one is available.  It must not echo
	// the character it reads.
	BlockForCharacterNoEcho() (byte, error)

	// GetName returns the name of the driver.
	GetName() string
}

// Stuffer is implemented by drivers which support injecting fake input
// ahead of real console input, used to drive AUTOEXEC-style boot scripts.
type Stuffer interface {
	StuffInput(string)
}

// Constructor is the signature of a constructor-function used to
// instantiate an instance of a driver.
type Constructor func() ConsoleInput

// This is a map of known-drivers.
var handlers = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Register makes a console input driver available, by name.
func Register(name string, obj Constructor) {
	name = strings.ToLower(name)
	handlers.m[name] = obj
}

// ConsoleIn holds our state: the active driver, plus the Ctrl-C counting
// policy and host-exec prefix shared across every driver.
type ConsoleIn struct {
	// driver is the thing that actually reads our input.
	driver ConsoleInput

	// lastWasInterrupt tracks whether the previous character we saw
	// was a Ctrl-C, so that two in a row can raise the stop condition.
	lastWasInterrupt bool

	// hostExecPrefix, when non-empty, marks a line read via ReadLine
	// as a command to run on the host rather than pass to CP/M.
	hostExecPrefix string

	// interruptCount is the Ctrl-C interrupt count which the BIOS
	// extension call can get/set at runtime.  It is only stored:
	// readRaw raises ErrInterrupted on the second consecutive Ctrl-C
	// whatever its value.
	interruptCount int
}

// GetInterruptCount returns the configured Ctrl-C interrupt count.
func (ci *ConsoleIn) GetInterruptCount() int {
	return ci.interruptCount
}

// SetInterruptCount updates the configured Ctrl-C interrupt count.
func (ci *ConsoleIn) SetInterruptCount(count int) {
	ci.interruptCount = count
}

// New is our constructor, it creates an input device which uses the
// specified driver.
func New(name string) (*ConsoleIn, error) {
	name = strings.ToLower(name)

	ctor, ok := handlers.m[name]
	if !ok {
		return nil, fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	return &ConsoleIn{driver: ctor()}, nil
}

// Setup prepares the active driver for use.
func (ci *ConsoleIn) Setup() error {
	return ci.driver.Setup()
}

// TearDown releases any resources the active driver is holding.
func (ci *ConsoleIn) TearDown() error {
	return ci.driver.TearDown()
}

// GetName returns the name of our selected driver.
func (ci *ConsoleIn) GetName() string {
	return ci.driver.GetName()
}

// GetDriver allows getting our driver at runtime.
func (ci *ConsoleIn) GetDriver() ConsoleInput {
	return ci.driver
}

// ChangeDriver allows changing our driver at runtime.  The old driver is
// torn down first so raw-mode state is not leaked across the swap.
func (ci *ConsoleIn) ChangeDriver(name string) error {
	name = strings.ToLower(name)

	ctor, ok := handlers.m[name]
	if !ok {
		return fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	if ci.driver != nil {
		_ = ci.driver.TearDown()
	}

	ci.driver = ctor()
	return ci.driver.Setup()
}

// GetDrivers returns all available driver-names, hiding the test-only
// "error" driver.
func (ci *ConsoleIn) GetDrivers() []string {
	valid := []string{}
	for x := range handlers.m {
		if x != "error" {
			valid = append(valid, x)
		}
	}
	return valid
}

// PendingInput returns true if there's a character ready to read.
func (ci *ConsoleIn) PendingInput() bool {
	return ci.driver.PendingInput()
}

// StuffInput injects fake input ahead of real console input, if the
// active driver supports it; otherwise it is silently ignored.
func (ci *ConsoleIn) StuffInput(input string) {
	if s, ok := ci.driver.(Stuffer); ok {
		s.StuffInput(input)
	}
}

// GetSystemCommandPrefix returns the configured host-exec prefix, if any.
func (ci *ConsoleIn) GetSystemCommandPrefix() string {
	return ci.hostExecPrefix
}

// SetSystemCommandPrefix configures the host-exec prefix.  Passing "/clear"
// clears it, matching the BIOS extension call's behaviour.
func (ci *ConsoleIn) SetSystemCommandPrefix(prefix string) {
	if prefix == "/clear" {
		ci.hostExecPrefix = ""
		return
	}
	ci.hostExecPrefix = prefix
}

// readRaw reads a single byte from the driver, applying the shared
// double-Ctrl-C interrupt policy (spec: two in a row raise a stop flag).
func (ci *ConsoleIn) readRaw() (byte, error) {
	c, err := ci.driver.BlockForCharacterNoEcho()
	if err != nil {
		return c, err
	}

	if c == 0x03 {
		if ci.lastWasInterrupt {
			ci.lastWasInterrupt = false
			return c, ErrInterrupted
		}
		ci.lastWasInterrupt = true
		return c, nil
	}
	ci.lastWasInterrupt = false
	return c, nil
}

// BlockForCharacterNoEcho returns the next character from the console,
// blocking until one is available.
func (ci *ConsoleIn) BlockForCharacterNoEcho() (byte, error) {
	return ci.readRaw()
}

// BlockForCharacterWithEcho returns the next character from the console,
// blocking until one is available, echoing it as it is read.
func (ci *ConsoleIn) BlockForCharacterWithEcho() (byte, error) {
	c, err := ci.readRaw()
	if err != nil {
		return c, err
	}
	fmt.Printf("%c", c)
	return c, nil
}

// ReadLine reads a line of input from the console, truncating to the
// length specified.  Backspace/DEL erase the previous character.
//
// If a host-exec prefix is configured and the completed line begins with
// it, the remainder is run as a host command instead, and ErrShowOutput
// is returned along with the command's combined output.
func (ci *ConsoleIn) ReadLine(max uint8) (string, error) {
	var sb strings.Builder

	for {
		c, err := ci.readRaw()
		if err != nil {
			return "", err
		}

		if c == '\r' || c == '\n' {
			fmt.Printf("\n")
			break
		}

		if c == 0x08 || c == 0x7F {
			s := sb.String()
			if len(s) > 0 {
				sb.Reset()
				sb.WriteString(s[:len(s)-1])
				fmt.Printf("\b \b")
			}
			continue
		}

		fmt.Printf("%c", c)
		if sb.Len() < int(max) {
			sb.WriteByte(c)
		}
	}

	text := sb.String()

	if ci.hostExecPrefix != "" && strings.HasPrefix(text, ci.hostExecPrefix) {
		cmd := strings.TrimSpace(strings.TrimPrefix(text, ci.hostExecPrefix))
		out, _ := exec.Command("sh", "-c", cmd).CombinedOutput()
		return string(out), ErrShowOutput
	}

	return text, nil
}
