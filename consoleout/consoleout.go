// Package consoleout is an abstraction over console output.
//
// We know we need an ANSI/RAW output, and we have an ADM-3A driver,
// so we want to create a factory that can instantiate and change a driver,
// given just a name.
package consoleout

import (
	"fmt"
	"io"
	"strings"
)

// ConsoleOutput is the interface that must be implemented by anything
// that wishes to be used as a console driver.
//
// Providing this interface is implemented an object may register itself,
// by name, via the Register method.
//
// You can compare this to the ConsoleInput interface, which is similar, although
// in that case the wrapper which creates the instances also implements some common methods.
type ConsoleOutput interface {

	// PutCharacter will output the specified character to the defined writer.
	//
	// The writer will default to STDOUT, but can be changed, via SetWriter.
	PutCharacter(c uint8)

	// GetName will return the name of the driver.
	GetName() string

	// SetWriter will update the writer.
	SetWriter(io.Writer)
}

// ConsoleRecorder is an interface that allows returning the contents that
// have been previously sent to the console.
//
// This is used solely for integration tests.
type ConsoleRecorder interface {

	// GetOutput returns the contents which have been displayed.
	GetOutput() string

	// Reset removes any stored state.
	Reset()
}

// This is a map of known-drivers
var handlers = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Constructor is the signature of a constructor-function
// which is used to instantiate an instance of a driver.
type Constructor func() ConsoleOutput

// Register makes a console driver available, by name.
//
// When one needs to be created the constructor can be called
// to create an instance of it.
func Register(name string, obj Constructor) {
	// Downcase for consistency.
	name = strings.ToLower(name)

	handlers.m[name] = obj
}

// ConsoleOut holds our state, which is basically just a
// pointer to the object handling our output.
type ConsoleOut struct {

	// driver is the thing that actually writes our output.
	driver ConsoleOutput

	// options store per-driver options which might be passed in the
	// constructor.  Right now these are undocumented
	options string
}

// New is our constructor, it creates an output device which uses
// the specified driver.
func New(name string) (*ConsoleOut, error) {

	// Do we have trailing options?
	options := ""

	// If we do save them
	val := strings.Split(name, ":")
	if len(val) == 2 {
		name = val[0]
		options = val[1]
	}

	// Downcase for consistency.
	name = strings.ToLower(name)

	// Do we have a constructor with the given name?
	ctor, ok := handlers.m[name]
	if !ok {
		return nil, fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	// OK we do, return ourselves with that driver.
	return &ConsoleOut{
		driver:  ctor(),
		options: options,
	}, nil
}

// GetDriver allows getting our driver at runtime.
func (co *ConsoleOut) GetDriver() ConsoleOutput {
	return co.driver
}

// WriteString writes the given string, character by character, via our
// selected output driver.
func (co *ConsoleOut) WriteString(str string) {
	for _, c := range str {
		co.PutCharacter(uint8(c))
	}
}

// ChangeDriver allows changing our driver at runtime.
func (co *ConsoleOut) ChangeDriver(name string) error {

	// Do we have a constructor with the given name?
	ctor, ok := handlers.m[name]
	if !ok {
		return fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	// change the driver by creating a new object
	co.driver = ctor()
	return nil
}

// GetName returns the name of our selected driver.
func (co *ConsoleOut) GetName() string {
	return co.driver.GetName()
}

// GetDrivers returns all available driver-names.
//
// We hide the internal "null", and "logger" drivers.
func (co *ConsoleOut) GetDrivers() []string {
	valid := []string{}

	for x := range handlers.m {
		if x != "null" && x != "logger" {
			valid = append(valid, x)
		}
	}
	return valid
}

// newlineRemap describes what a single CR or LF byte should turn into,
// given one of the "CR=xxx" / "LF=xxx" option tokens.
var newlineRemap = map[string]string{
	"NONE": "",
	"BOTH": "\r\n",
	"CR":   "\r",
	"LF":   "\n",
}

// remapNewline looks up the option token (e.g. "CR=BOTH") in co.options
// and reports the replacement bytes to emit instead of the original
// character, plus whether any matching token was found at all.
func (co *ConsoleOut) remapNewline(prefix string) (string, bool) {
	for _, suffix := range []string{"NONE", "BOTH", "CR", "LF"} {
		if strings.Contains(co.options, prefix+"="+suffix) {
			return newlineRemap[suffix], true
		}
	}
	return "", false
}

// PutCharacter outputs a character, using our selected driver.
//
// Options only affect how CR and LF are handled; every other byte is
// always passed straight through to the driver.
func (co *ConsoleOut) PutCharacter(c byte) {

	if co.options == "" || (c != '\r' && c != '\n') {
		co.driver.PutCharacter(c)
		return
	}

	prefix := "LF"
	if c == '\r' {
		prefix = "CR"
	}

	replacement, matched := co.remapNewline(prefix)
	if !matched {
		// No option governs this character after all - pass it through.
		co.driver.PutCharacter(c)
		return
	}

	for _, out := range []byte(replacement) {
		co.driver.PutCharacter(out)
	}
}
