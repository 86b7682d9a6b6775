package consoleout

import (
	"fmt"
	"io"
	"os"
)

// Translator states for the ADM-3A -> ANSI byte-at-a-time state machine.
// Each PutCharacter call advances exactly one state transition; a
// multi-byte escape sequence is assembled across several calls.
const (
	stateGround      = iota // no pending escape sequence
	stateEsc                // saw ESC, waiting on the sequence letter
	stateCursorRow          // "ESC =" seen, waiting on the row byte
	stateCursorCol          // cursor row read, waiting on the column byte
	stateAttrEnable         // "ESC B" seen, waiting on the attribute digit
	stateAttrDisable        // "ESC C" seen, waiting on the attribute digit
	statePixelSkip1         // "ESC L"/"ESC D" - four bytes to discard ("ESC *"/"ESC space" enter at statePixelSkip3, two bytes)
	statePixelSkip2
	statePixelSkip3
	statePixelSkip4
)

// Adm3AOutputDriver translates an ADM-3A byte stream into ANSI escape
// sequences before handing it to writer.
type Adm3AOutputDriver struct {

	// status is the current state-machine state.
	status int

	// x stores the cursor X
	x uint8

	// y stores the cursor Y
	y uint8

	// writer is where we send our output
	writer io.Writer
}

// GetName returns the name of this driver.
//
// This is part of the OutputDriver interface.
func (a3a *Adm3AOutputDriver) GetName() string {
	return "adm-3a"
}

// PutCharacter writes the character to the console.
//
// This is part of the OutputDriver interface.
func (a3a *Adm3AOutputDriver) PutCharacter(c uint8) {

	switch a3a.status {
	case stateGround:
		switch c {
		case 0x07: /* BEL: flash screen */
			fmt.Fprintf(a3a.writer, "\033[?5h\033[?5l")
		case 0x7F: /* DEL: echo BS, space, BS */
			fmt.Fprintf(a3a.writer, "\b \b")
		case 0x1A: /* adm3a clear screen */
			fmt.Fprintf(a3a.writer, "\033[H\033[2J")
		case 0x0C: /* vt52 clear screen */
			fmt.Fprintf(a3a.writer, "\033[H\033[2J")
		case 0x1E: /* adm3a cursor home */
			fmt.Fprintf(a3a.writer, "\033[H")
		case 0x1B:
			a3a.status = stateEsc
		case 1:
			a3a.status = stateCursorRow /* cursor motion prefix */
		case 2: /* insert line */
			fmt.Fprintf(a3a.writer, "\033[L")
		case 3: /* delete line */
			fmt.Fprintf(a3a.writer, "\033[M")
		case 0x18, 5: /* clear to eol */
			fmt.Fprintf(a3a.writer, "\033[K")
		case 0x12, 0x13:
			// nop
		default:
			fmt.Fprintf(a3a.writer, "%c", c)
		}
	case stateEsc: /* we had an esc-prefix */
		switch c {
		case 0x1B:
			fmt.Fprintf(a3a.writer, "%c", c)
		case '=', 'Y':
			a3a.status = stateCursorRow
		case 'E': /* insert line */
			fmt.Fprintf(a3a.writer, "\033[L")
		case 'R': /* delete line */
			fmt.Fprintf(a3a.writer, "\033[M")
		case 'B': /* enable attribute */
			a3a.status = stateAttrEnable
		case 'C': /* disable attribute */
			a3a.status = stateAttrDisable
		case 'L', 'D': /* set line */ /* delete line */
			a3a.status = statePixelSkip1
		case '*', ' ': /* set pixel */ /* clear pixel */
			a3a.status = statePixelSkip3
		default: /* some true ANSI sequence? */
			a3a.status = stateGround
			fmt.Fprintf(a3a.writer, "%c%c", 0x1B, c)
		}
	case stateCursorRow:
		a3a.y = c - ' ' + 1
		a3a.status = stateCursorCol
	case stateCursorCol:
		a3a.x = c - ' ' + 1
		a3a.status = stateGround
		fmt.Fprintf(a3a.writer, "\033[%d;%dH", a3a.y, a3a.x)
	case stateAttrEnable: /* <ESC>+B prefix */
		a3a.status = stateGround
		switch c {
		case '0': /* start reverse video */
			fmt.Fprintf(a3a.writer, "\033[7m")
		case '1': /* start half intensity */
			fmt.Fprintf(a3a.writer, "\033[1m")
		case '2': /* start blinking */
			fmt.Fprintf(a3a.writer, "\033[5m")
		case '3': /* start underlining */
			fmt.Fprintf(a3a.writer, "\033[4m")
		case '4': /* cursor on */
			fmt.Fprintf(a3a.writer, "\033[?25h")
		case '5': /* video mode on */
			// nop
		case '6': /* remember cursor position */
			fmt.Fprintf(a3a.writer, "\033[s")
		case '7': /* preserve status line */
			// nop
		default:
			fmt.Fprintf(a3a.writer, "%cB%c", 0x1B, c)
		}
	case stateAttrDisable: /* <ESC>+C prefix */
		a3a.status = stateGround
		switch c {
		case '0': /* stop reverse video */
			fmt.Fprintf(a3a.writer, "\033[27m")
		case '1': /* stop half intensity */
			fmt.Fprintf(a3a.writer, "\033[m")
		case '2': /* stop blinking */
			fmt.Fprintf(a3a.writer, "\033[25m")
		case '3': /* stop underlining */
			fmt.Fprintf(a3a.writer, "\033[24m")
		case '4': /* cursor off */
			fmt.Fprintf(a3a.writer, "\033[?25l")
		case '6': /* restore cursor position */
			fmt.Fprintf(a3a.writer, "\033[u")
		case '5': /* video mode off */
			// nop
		case '7': /* don't preserve status line */
			// nop
		default:
			fmt.Fprintf(a3a.writer, "%cC%c", 0x1B, c)
		}
		/* set/clear line/point */
	case statePixelSkip1:
		a3a.status++
	case statePixelSkip2:
		a3a.status++
	case statePixelSkip3:
		a3a.status++
	case statePixelSkip4:
		a3a.status = stateGround
	}

}

// SetWriter will update the writer.
func (a3a *Adm3AOutputDriver) SetWriter(w io.Writer) {
	a3a.writer = w
}

// init registers our driver, by name.
func init() {
	Register("adm-3a", func() ConsoleOutput {
		return &Adm3AOutputDriver{
			writer: os.Stdout,
		}
	})
}
