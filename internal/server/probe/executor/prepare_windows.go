//go:build windows

package executor

import (
	"os"
	"strings"
)

const executableMode os.FileMode = 0o700

// Windows has no execute bit; the loader goes by extension.
func executablePath(destination string) string {
	if strings.HasSuffix(strings.ToLower(destination), ".exe") {
		return destination
	}
	return destination + ".exe"
}
