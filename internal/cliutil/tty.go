// Package cliutil holds helpers shared by the command line tools.
package cliutil

import "os"

// IsTty reports whether f is attached to a terminal.
func IsTty(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
