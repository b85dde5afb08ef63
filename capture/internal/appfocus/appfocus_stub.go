//go:build !darwin

package appfocus

import "fmt"

// platformAvailable is the fallback for platforms without a native
// active-window query in this build. Linux would query the window
// manager (_NET_ACTIVE_WINDOW via Xlib, or the Wayland compositor's
// foreign-toplevel protocol where supported); Windows would use
// GetForegroundWindow + GetWindowText.
func platformAvailable() (bool, string) {
	return false, "active-window query not implemented for this platform in this build"
}

func platformActiveWindow() (app, window string, err error) {
	return "", "", fmt.Errorf("appfocus: not implemented")
}
