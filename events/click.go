package events

// ActionContext is the inferred intent behind a classified click target.
type ActionContext string

const (
	ActionSend     ActionContext = "send"
	ActionSave     ActionContext = "save"
	ActionDelete   ActionContext = "delete"
	ActionEdit     ActionContext = "edit"
	ActionCreate   ActionContext = "create"
	ActionCancel   ActionContext = "cancel"
	ActionConfirm  ActionContext = "confirm"
	ActionNavigate ActionContext = "navigate"
)

// SemanticType is the classifier's tag for a native click target.
type SemanticType string

const (
	SemanticEmailButton        SemanticType = "email_button"
	SemanticNoteButton         SemanticType = "note_button"
	SemanticSendButton         SemanticType = "send_button"
	SemanticSaveButton         SemanticType = "save_button"
	SemanticNavigationLink     SemanticType = "navigation_link"
	SemanticGenericButton      SemanticType = "generic_button"
	SemanticInteractiveElement SemanticType = "interactive_element"
	SemanticUnknown            SemanticType = "unknown"
)

// NativeTarget is the accessibility-tree-derived half of a ClickTarget.
// Populated when the click did not land in a browser window.
type NativeTarget struct {
	Role          string        `json:"role"`
	Label         string        `json:"label,omitempty"`
	Identifier    string        `json:"identifier,omitempty"`
	Value         string        `json:"value,omitempty"`
	Enabled       bool          `json:"enabled"`
	Focused       bool          `json:"focused"`
	ParentContext string        `json:"parent_context,omitempty"`
	SiblingTexts  []string      `json:"sibling_texts,omitempty"`
	SemanticType  SemanticType  `json:"semantic_type"`
	Confidence    float64       `json:"confidence"`
	ActionContext ActionContext `json:"action_context,omitempty"`
}

// WebTarget is the DOM-derived half of a ClickTarget. Populated when the
// click landed inside a browser window.
type WebTarget struct {
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	Tag              string   `json:"tag"`
	Selector         string   `json:"selector"`
	Text             string   `json:"text"`
	Href             string   `json:"href,omitempty"`
	AriaLabel        string   `json:"aria_label,omitempty"`
	ID               string   `json:"id,omitempty"`
	Classes          []string `json:"classes,omitempty"`
	IsButton         bool     `json:"is_button"`
	IsLink           bool     `json:"is_link"`
	IsFormElement    bool     `json:"is_form_element"`
	AppearsClickable bool     `json:"appears_clickable"`
}

// ClickTarget describes what was clicked, resolved by the enricher from a
// raw click/DOM-click event. Exactly one of Native or Web is populated —
// never both, never neither.
type ClickTarget struct {
	Coordinates Point         `json:"coordinates"`
	App         string        `json:"app"`
	WindowTitle string        `json:"window_title"`
	Native      *NativeTarget `json:"native,omitempty"`
	Web         *WebTarget    `json:"web,omitempty"`
}

// IsWeb reports whether the web path is the populated one.
func (c ClickTarget) IsWeb() bool { return c.Web != nil }

// PageViewEvent is a resolved browser navigation, derived from a
// url_change RawEvent once the enricher has classified its ChangeType.
type PageViewEvent struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	TabIndex    int        `json:"tab_index"`
	WindowIndex int        `json:"window_index"`
	TabCount    int        `json:"tab_count"`
	ChangeType  ChangeType `json:"change_type"`
}
