//go:build !darwin

package accessibility

import "github.com/tempoflow/tempo/events"

// platformAvailable is the fallback for platforms without a native
// accessibility-tree query in this build. Linux would query the AT-SPI2
// D-Bus registry; Windows would use the UI Automation COM API.
func platformAvailable() (bool, string) {
	return false, "accessibility tree query not implemented for this platform in this build"
}

func platformElementAt(pt events.Point, maxAncestors, maxSiblings, maxDepth int) (events.NativeTarget, bool) {
	return events.NativeTarget{}, false
}
