// drv_term.go uses the Termbox library to handle console-based input.
//
// A goroutine is launched which collects any keyboard input and
// saves that to a buffer where it can be peeled off on-demand.
//
// The portability of this solution is unknown, however this driver
// _seems_ reasonable.  It is not the default; "stty" is.

package consolein

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nsf/termbox-go"
	"golang.org/x/term"
)

// keyPollInterval is how often BlockForCharacterNoEcho rechecks the
// buffer while waiting on the background termbox poller.
const keyPollInterval = 1 * time.Millisecond

// TermboxInput is the "term" input driver: a background goroutine
// drains termbox keyboard events into a buffer, which reads then peel
// characters off of on demand.
type TermboxInput struct {

	// oldState is the terminal state captured before switching to raw
	// mode, so TearDown can restore it.
	oldState *term.State

	// Cancel stops the background polling goroutine.
	Cancel context.CancelFunc

	// keyBuffer accumulates runes read in the background by termbox.
	keyBuffer []rune
}

// Setup ensures that the termbox init functions are called, and our
// terminal is set into RAW mode.
func (ti *TermboxInput) Setup() error {

	var err error

	// switch STDIN into 'raw' mode - we must do this before
	// we setup termbox.
	ti.oldState, err = term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}

	// Setup the terminal.
	err = termbox.Init()
	if err != nil {
		return err
	}

	// This is "Show Cursor" which termbox hides by default.
	//
	// Sigh.
	fmt.Printf("\x1b[?25h")

	// Allow our polling of keyboard to be canceled
	ctx, cancel := context.WithCancel(context.Background())
	ti.Cancel = cancel

	// Start polling for keyboard input "in the background".
	go ti.pollKeyboard(ctx)

	// No error
	return nil
}

// pollKeyboard runs for the lifetime of the driver, appending each
// termbox key event to keyBuffer until ctx is canceled.
func (ti *TermboxInput) pollKeyboard(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := termbox.PollEvent()
		if ev.Type != termbox.EventKey {
			continue
		}

		if ev.Ch != 0 {
			ti.keyBuffer = append(ti.keyBuffer, ev.Ch)
		} else {
			ti.keyBuffer = append(ti.keyBuffer, rune(ev.Key))
		}
	}
}

// TearDown resets the state of the terminal, disables the background polling of characters
// and generally gets us ready for exit.
func (ti *TermboxInput) TearDown() error {
	// Cancel the keyboard reading
	if ti.Cancel != nil {
		ti.Cancel()
	}

	// Terminate the GUI.
	termbox.Close()

	// Restore the terminal
	if ti.oldState != nil {
		err := term.Restore(int(os.Stdin.Fd()), ti.oldState)
		return err
	}

	return nil
}

// PendingInput returns true if there is pending input from STDIN.
func (ti *TermboxInput) PendingInput() bool {

	return len(ti.keyBuffer) > 0
}

// StuffInput inserts fake input into our buffer, ahead of anything
// already read from the keyboard.
func (ti *TermboxInput) StuffInput(input string) {
	ti.keyBuffer = append([]rune(input), ti.keyBuffer...)
}

// BlockForCharacterNoEcho returns the next character from the console, blocking until
// one is available.
//
// NOTE: This function should not echo keystrokes which are entered.
func (ti *TermboxInput) BlockForCharacterNoEcho() (byte, error) {

	for len(ti.keyBuffer) == 0 {
		time.Sleep(keyPollInterval)
	}

	// Return the character
	c := ti.keyBuffer[0]
	ti.keyBuffer = ti.keyBuffer[1:]
	return byte(c), nil
}

// GetName is part of the module API, and returns the name of this driver.
func (ti *TermboxInput) GetName() string {
	return "term"
}

// init registers our driver, by name.
func init() {
	Register("term", func() ConsoleInput {
		return new(TermboxInput)
	})
}
