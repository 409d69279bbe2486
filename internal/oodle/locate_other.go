//go:build !windows

package oodle

import "os"

const oodleDLLName = "oo2core_6_win64.dll"

// locateLibrary only checks the working directory on non-Windows hosts; the
// Steam registry and libraryfolders.vdf scan are Windows-only concepts.
// Running the game's Windows-only decoder library here still requires the
// library to be present (e.g. copied out of a Wine prefix or the Steam
// install under Proton).
func locateLibrary() (string, bool) {
	if _, err := os.Stat(oodleDLLName); err == nil {
		return oodleDLLName, true
	}
	return "", false
}
