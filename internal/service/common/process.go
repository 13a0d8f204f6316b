//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"github.com/mitchellh/go-ps"
)

// IsProcessRunning reports whether a process with pid exists. Lookup errors
// are reported as running so that callers never steal a live lock.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return true
	}

	return process != nil
}
