// Package events defines the data model shared by every stage of the
// capture pipeline: raw observations, the derived units built from them,
// and the batches and summaries that leave the process.
//
// Each RawEvent kind has a fixed payload struct that capture sources put
// in Payload. Payload itself is typed any, so the pairing of kind and
// struct is checked at the point of use, not at compile time; events read
// back by capture/rawlog's ForSession carry the generic map that
// encoding/json decodes instead of the typed struct.
package events

import "time"

// Layer identifies which capture source produced a RawEvent.
type Layer string

const (
	LayerOSInput       Layer = "os_input"
	LayerAppFocus      Layer = "app_focus"
	LayerClipboard     Layer = "clipboard"
	LayerAccessibility Layer = "accessibility"
	LayerBrowser       Layer = "browser"
	LayerSnapshot      Layer = "snapshot"
)

// Kind is the layer-specific tag of a RawEvent.
type Kind string

const (
	KindKeyDown         Kind = "key_down"
	KindKeyUp           Kind = "key_up"
	KindMouseDown       Kind = "mouse_down"
	KindMouseUp         Kind = "mouse_up"
	KindMouseMove       Kind = "mouse_move"
	KindAppFocus        Kind = "app_focus"
	KindClipboardChange Kind = "clipboard_change"
	KindURLChange       Kind = "url_change"
	KindDOMClick        Kind = "dom_click"
	KindScroll          Kind = "scroll"
	KindTextSelection   Kind = "text_selection"
	KindContentSnapshot Kind = "content_snapshot"
	KindSourceDisabled  Kind = "source_disabled"
)

// Context is the active-app/window/url triple captured at emit time.
type Context struct {
	ActiveApp    string `json:"active_app"`
	ActiveWindow string `json:"active_window"`
	ActiveURL    string `json:"active_url,omitempty"`
}

// Modifiers is the set of modifier keys held during an input event.
type Modifiers struct {
	Shift bool `json:"shift"`
	Ctrl  bool `json:"ctrl"`
	Alt   bool `json:"alt"`
	Meta  bool `json:"meta"`
}

// Point is a screen-space coordinate pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// KeyPayload carries the fields for key_down/key_up.
type KeyPayload struct {
	KeyCode   int       `json:"key_code"`
	Char      string    `json:"char"`
	Modifiers Modifiers `json:"modifiers"`
}

// MousePayload carries the fields for mouse_down/mouse_up/mouse_move.
type MousePayload struct {
	Coordinates Point `json:"coordinates"`
	Button      int   `json:"button,omitempty"`
}

// AppFocusPayload carries the fields for app_focus. AIAppContext is the
// enricher's category bucket for the app, filled in before the event
// enters the buffer.
type AppFocusPayload struct {
	AppName      string      `json:"app_name"`
	WindowTitle  string      `json:"window_title"`
	AIAppContext AppCategory `json:"ai_app_context,omitempty"`
}

// ContentType classifies clipboard/text content.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentURL      ContentType = "url"
	ContentEmail    ContentType = "email"
	ContentFilePath ContentType = "file_path"
	ContentJSON     ContentType = "json"
	ContentCode     ContentType = "code"
	ContentNumber   ContentType = "number"
)

// ClipboardPayload carries the fields for clipboard_change.
type ClipboardPayload struct {
	Content       string      `json:"content"`
	ContentType   ContentType `json:"content_type"`
	ContentLength int         `json:"content_length"`
	Truncated     bool        `json:"truncated"`
	ContainsURL   bool        `json:"contains_url"`
	ContainsEmail bool        `json:"contains_email"`
	WordCount     int         `json:"word_count"`
}

// ChangeType classifies a browser url_change event.
type ChangeType string

const (
	ChangeNavigation ChangeType = "navigation"
	ChangeTabSwitch  ChangeType = "tab_switch"
	ChangeNewTab     ChangeType = "new_tab"
	ChangeWindow     ChangeType = "window_change"
)

// URLChangePayload carries the fields for url_change.
type URLChangePayload struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	TabIndex    int        `json:"tab_index"`
	WindowIndex int        `json:"window_index"`
	TabCount    int        `json:"tab_count"`
	ChangeType  ChangeType `json:"change_type"`
}

// ScrollDirection is the direction of a scroll event.
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// ScrollPayload carries the fields for scroll.
type ScrollPayload struct {
	ScrollY   float64         `json:"scroll_y"`
	Direction ScrollDirection `json:"direction"`
}

// SelectionPayload carries the fields for text_selection. Text is capped
// at 500 chars by the capturing source before it reaches this struct.
type SelectionPayload struct {
	Text string `json:"text"`
}

// SnapshotType classifies why a content_snapshot was taken.
type SnapshotType string

const (
	SnapshotInterval SnapshotType = "interval"
	SnapshotAppFocus SnapshotType = "app_focus"
	SnapshotContext  SnapshotType = "context"
	SnapshotManual   SnapshotType = "manual"
	SnapshotInitial  SnapshotType = "initial"
)

// ContentSnapshotPayload carries the fields for content_snapshot.
type ContentSnapshotPayload struct {
	IsWeb        bool         `json:"is_web"`
	URL          string       `json:"url,omitempty"`
	Preview      string       `json:"preview"` // <= 2 KiB
	WordCount    int          `json:"word_count"`
	ElementCount int          `json:"element_count"`
	SnapshotType SnapshotType `json:"snapshot_type"`
}

// SourceDisabledPayload records a permission-denial disabling a source.
type SourceDisabledPayload struct {
	Layer  Layer  `json:"layer"`
	Reason string `json:"reason"`
}

// RawEvent is a single observation from one capture source. Sequence is
// strictly increasing within a session, starting at 1; Timestamp is
// non-decreasing within a single layer.
type RawEvent struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Layer     Layer     `json:"layer"`
	Kind      Kind      `json:"kind"`
	Context   Context   `json:"context"`
	Payload   any       `json:"payload"`
}
