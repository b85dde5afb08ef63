package enrich

import (
	"testing"

	"github.com/tempoflow/tempo/events"
)

func TestClassifyClick(t *testing.T) {
	cases := []struct {
		name string
		in   ClickInput
		want events.SemanticType
	}{
		{"send", ClickInput{ElementText: "Send", ElementRole: "button"}, events.SemanticSendButton},
		{"save", ClickInput{ElementText: "Save changes", ElementRole: "button"}, events.SemanticSaveButton},
		{"link role", ClickInput{ElementText: "Pricing", ElementRole: "link"}, events.SemanticNavigationLink},
		{"generic button", ClickInput{ElementText: "OK", ElementRole: "button"}, events.SemanticGenericButton},
		{"unknown", ClickInput{}, events.SemanticUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, _, conf := ClassifyClick(c.in)
			if got != c.want {
				t.Errorf("ClassifyClick(%+v) = %q, want %q", c.in, got, c.want)
			}
			if c.want == events.SemanticUnknown && conf != 0.1 {
				t.Errorf("unknown confidence = %v, want 0.1", conf)
			}
		})
	}
}

func TestClassifyApp(t *testing.T) {
	if got := ClassifyApp("Visual Studio Code"); got != events.CategoryCoding {
		t.Errorf("got %q, want coding", got)
	}
	if got := ClassifyApp("Slack"); got != events.CategoryCommunication {
		t.Errorf("got %q, want communication", got)
	}
	if got := ClassifyApp("SomeRandomApp"); got != events.CategoryOther {
		t.Errorf("got %q, want other", got)
	}
}

func TestClassifyContentType(t *testing.T) {
	cases := map[string]events.ContentType{
		"https://example.com/a":    events.ContentURL,
		"person@example.com":       events.ContentEmail,
		"12,345":                   events.ContentNumber,
		"func main() { return 0 }": events.ContentCode,
		"just some plain words":    events.ContentText,
	}
	for input, want := range cases {
		if got := ClassifyContentType(input); got != want {
			t.Errorf("ClassifyContentType(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAnnotateContent(t *testing.T) {
	a := AnnotateContent("line one\nline two https://x.com")
	if !a.IsMultiline || !a.HasURLs {
		t.Errorf("annotation = %+v, want multiline+urls", a)
	}
}
