//go:build darwin

package appfocus

import "fmt"

// platformAvailable would check AXIsProcessTrusted() before relying on
// NSWorkspace.frontmostApplication. Not linked without cgo in this build.
func platformAvailable() (bool, string) {
	return false, "macOS active-window query requires a CGO build of appfocus, not linked in this build"
}

// platformActiveWindow would read NSWorkspace.shared.frontmostApplication
// and its focused AXWindow title. Never reached while platformAvailable
// reports false.
func platformActiveWindow() (app, window string, err error) {
	return "", "", fmt.Errorf("appfocus: not implemented")
}
