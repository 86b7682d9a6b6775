//go:build unix

package consolein

import (
	"os"

	"golang.org/x/sys/unix"
)

// selectTimeoutUsec bounds how long canSelect blocks waiting to learn
// whether stdin has data ready.
const selectTimeoutUsec = 200

// canSelect is the unix-specific probe for pending stdin input: it asks
// the kernel directly via select(2) rather than attempting a read.
func canSelect() bool {

	fds := &unix.FdSet{}
	fds.Set(int(os.Stdin.Fd()))

	tv := unix.Timeval{Usec: selectTimeoutUsec}

	nRead, err := unix.Select(1, fds, nil, nil, &tv)
	if err != nil {
		return false
	}

	return nRead > 0
}
