// Package enrich augments raw events with inferred context before they
// enter the buffer: semantic roles for native click targets, app
// categories for focus events, and content annotations for text-bearing
// payloads. Every classifier here is a deterministic, ordered rule chain
// — no randomness, no model call — matching the small ordered-rule
// classifiers in the teacher corpus (veille/normalize.go's text
// classification, domwatch's content-sufficiency heuristics).
package enrich

import (
	"strings"

	"github.com/tempoflow/tempo/events"
)

// ClickInput is the evidence available to the native-click classifier:
// the element's own text, its siblings' texts, its parent's accessibility
// role, and its own role.
type ClickInput struct {
	ElementText  string
	SiblingTexts []string
	ParentRole   string
	ElementRole  string
}

// clickRule is one ordered match rule. Match receives the lower-cased
// concatenation of ElementText and SiblingTexts plus the raw ClickInput.
type clickRule struct {
	semanticType  events.SemanticType
	actionContext events.ActionContext
	confidence    float64
	match         func(text string, in ClickInput) bool
}

// clickRules is evaluated in order; the first match wins. Order encodes
// specificity: narrower intents (email, note) are checked before the
// generic send/save/navigate buckets.
var clickRules = []clickRule{
	{
		semanticType:  events.SemanticEmailButton,
		actionContext: events.ActionSend,
		confidence:    0.9,
		match: func(text string, in ClickInput) bool {
			return containsAny(text, "email", "mail to", "compose")
		},
	},
	{
		semanticType:  events.SemanticNoteButton,
		actionContext: events.ActionCreate,
		confidence:    0.85,
		match: func(text string, in ClickInput) bool {
			return containsAny(text, "new note", "add note", "note")
		},
	},
	{
		semanticType:  events.SemanticSendButton,
		actionContext: events.ActionSend,
		confidence:    0.9,
		match: func(text string, in ClickInput) bool {
			return containsAny(text, "send", "submit", "post", "reply")
		},
	},
	{
		semanticType:  events.SemanticSaveButton,
		actionContext: events.ActionSave,
		confidence:    0.9,
		match: func(text string, in ClickInput) bool {
			return containsAny(text, "save", "confirm", "apply", "done")
		},
	},
	{
		semanticType:  events.SemanticNavigationLink,
		actionContext: events.ActionNavigate,
		confidence:    0.8,
		match: func(text string, in ClickInput) bool {
			return in.ElementRole == "link" || containsAny(text, "go to", "view", "open")
		},
	},
	{
		semanticType: events.SemanticGenericButton,
		confidence:   0.6,
		match: func(text string, in ClickInput) bool {
			return in.ElementRole == "button"
		},
	},
	{
		semanticType: events.SemanticInteractiveElement,
		confidence:   0.4,
		match: func(text string, in ClickInput) bool {
			return in.ElementRole != ""
		},
	},
}

// ClassifyClick runs the deterministic classifier over a native click
// target's evidence and returns the first matching rule's tag. The
// fallback when nothing matches is SemanticUnknown at confidence 0.1,
// the same degraded tag used when accessibility permission is denied
// (spec.md §4.1, §8 scenario 5).
func ClassifyClick(in ClickInput) (events.SemanticType, events.ActionContext, float64) {
	text := strings.ToLower(strings.Join(append([]string{in.ElementText}, in.SiblingTexts...), " "))
	for _, r := range clickRules {
		if r.match(text, in) {
			return r.semanticType, r.actionContext, r.confidence
		}
	}
	return events.SemanticUnknown, "", 0.1
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
