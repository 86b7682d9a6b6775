package consoleout

import (
	"fmt"
	"io"
	"os"
)

// ansiDriverName is the name under which this driver registers itself,
// and the value a user passes to "-output ansi" or the runtime
// "A:!CONSOLE.COM" helper to select it.
const ansiDriverName = "ansi"

// AnsiOutputDriver is the trivial output driver: it performs no
// translation at all and assumes the host terminal already understands
// raw ANSI escape sequences, passing every byte straight through.
type AnsiOutputDriver struct {
	// writer is where the emitted bytes are sent.
	writer io.Writer
}

// GetName returns the name of this driver.
//
// This is part of the OutputDriver interface.
func (ad *AnsiOutputDriver) GetName() string {
	return ansiDriverName
}

// PutCharacter writes c to the console, unmodified.
//
// This is part of the OutputDriver interface.
func (ad *AnsiOutputDriver) PutCharacter(c uint8) {
	fmt.Fprintf(ad.writer, "%c", c)
}

// SetWriter changes where subsequent output is sent.
func (ad *AnsiOutputDriver) SetWriter(w io.Writer) {
	ad.writer = w
}

func init() {
	Register(ansiDriverName, func() ConsoleOutput {
		return &AnsiOutputDriver{writer: os.Stdout}
	})
}
