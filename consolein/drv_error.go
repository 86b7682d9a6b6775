// drv_error is a console input-driver which only returns errors.
//
// This driver is only used for testing purposes.

package consolein

import "errors"

// ErrorInputName is the registered name of the always-failing driver.
const ErrorInputName = "error"

// errBlocked is returned by every read attempted against ErrorInput.
var errBlocked = errors.New("consolein: error-driver refuses all input")

// ErrorInput is an input driver that claims input is always available
// but fails every attempt to actually read it.  It exists so callers
// can exercise their I/O-error handling paths without real console
// hardware.
type ErrorInput struct{}

// Setup is a NOP.
func (ei *ErrorInput) Setup() error {
	return nil
}

// TearDown is a NOP.
func (ei *ErrorInput) TearDown() error {
	return nil
}

// PendingInput unconditionally reports true; the failure only
// surfaces once BlockForCharacterNoEcho is actually called.
func (ei *ErrorInput) PendingInput() bool {
	return true
}

// GetName returns the name of this driver, "error".
func (ei *ErrorInput) GetName() string {
	return ErrorInputName
}

// BlockForCharacterNoEcho never succeeds.
func (ei *ErrorInput) BlockForCharacterNoEcho() (byte, error) {
	return 0x00, errBlocked
}

func init() {
	Register(ErrorInputName, func() ConsoleInput {
		return new(ErrorInput)
	})
}
