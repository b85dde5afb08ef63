package enrich

import (
	"context"

	"github.com/tempoflow/tempo/events"
)

// AccessibilityInspector is the subset of accessibility.Inspector the
// click enricher needs. Declared here as a structural interface rather
// than imported directly: capture/internal/accessibility is only
// importable from packages rooted at capture/, and enrich has no reason
// to sit inside that tree just to call one method on a value capture
// already hands it.
type AccessibilityInspector interface {
	ElementAt(ctx context.Context, pt events.Point) events.NativeTarget
}

// BrowserBridge is the subset of browser.Bridge the click enricher needs,
// kept structural for the same reason as AccessibilityInspector.
type BrowserBridge interface {
	ClickAt(ctx context.Context, pt events.Point) (events.WebTarget, bool)
}

// EnrichClick resolves a raw pointer-down event into a ClickTarget
// (spec.md §4.3): the browser bridge is tried first so a click that
// lands inside a tracked tab resolves to a web target, falling back to
// the accessibility tree for everything else. A resolved native target
// is run through ClassifyClick to attach its semantic tag; browser
// nil/ok=false falls through to native exactly like accessibility
// nil falls through to the degraded unknown target.
func EnrichClick(ctx context.Context, browser BrowserBridge, access AccessibilityInspector, pt events.Point, app, windowTitle string) events.ClickTarget {
	target := events.ClickTarget{Coordinates: pt, App: app, WindowTitle: windowTitle}

	if browser != nil {
		if web, ok := browser.ClickAt(ctx, pt); ok {
			target.Web = &web
			return target
		}
	}

	native := events.NativeTarget{Role: "unknown", SemanticType: events.SemanticUnknown, Confidence: 0.1}
	if access != nil {
		native = access.ElementAt(ctx, pt)
	}

	if native.Role != "" && native.Role != "unknown" {
		semantic, action, confidence := ClassifyClick(ClickInput{
			ElementText:  native.Label,
			SiblingTexts: native.SiblingTexts,
			ParentRole:   native.ParentContext,
			ElementRole:  native.Role,
		})
		native.SemanticType = semantic
		native.ActionContext = action
		native.Confidence = confidence
	}

	target.Native = &native
	return target
}
