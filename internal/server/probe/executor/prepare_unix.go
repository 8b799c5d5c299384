//go:build !windows

package executor

import "os"

const executableMode os.FileMode = 0o700

func executablePath(destination string) string {
	return destination
}
