//go:build !darwin

package clipboard

import "fmt"

// platformAvailable is the fallback for platforms without a native
// clipboard read in this build. Linux would read the X11 CLIPBOARD/
// PRIMARY selection or the Wayland data-control protocol; Windows would
// use GetClipboardData(CF_UNICODETEXT).
func platformAvailable() (bool, string) {
	return false, "clipboard read not implemented for this platform in this build"
}

func platformReadClipboard() (changeCount int, content string, err error) {
	return 0, "", fmt.Errorf("clipboard: not implemented")
}
