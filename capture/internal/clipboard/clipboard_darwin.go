//go:build darwin

package clipboard

import "fmt"

// platformAvailable would check that NSPasteboard.general is reachable
// (always true on a logged-in macOS session; no special permission is
// required to read the clipboard). Not linked without cgo in this build.
func platformAvailable() (bool, string) {
	return false, "macOS clipboard read requires a CGO build of clipboard, not linked in this build"
}

// platformReadClipboard would return NSPasteboard.general.changeCount and
// its string contents. Never reached while platformAvailable reports
// false.
func platformReadClipboard() (changeCount int, content string, err error) {
	return 0, "", fmt.Errorf("clipboard: not implemented")
}
