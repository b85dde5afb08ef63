//go:build darwin

package accessibility

import "github.com/tempoflow/tempo/events"

// platformAvailable would check AXIsProcessTrusted(). Not linked without
// cgo in this build, so the inspector always degrades.
func platformAvailable() (bool, string) {
	return false, "macOS Accessibility API requires a CGO build of accessibility, not linked in this build"
}

// platformElementAt would call AXUIElementCopyElementAtPosition and walk
// AXParent/AXChildren up to maxAncestors/maxSiblings/maxDepth. Never
// reached while platformAvailable reports false.
func platformElementAt(pt events.Point, maxAncestors, maxSiblings, maxDepth int) (events.NativeTarget, bool) {
	return events.NativeTarget{}, false
}
