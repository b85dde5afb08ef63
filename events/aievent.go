package events

import "time"

// ObjectType is the coarse object inferred for an AIEvent by the batcher's
// object-inference step (URL host → known service, window title → file/
// terminal/generic, app → itself).
type ObjectType string

const (
	ObjectRepository ObjectType = "repository"
	ObjectEmail      ObjectType = "email"
	ObjectWebpage    ObjectType = "webpage"
	ObjectFile       ObjectType = "file"
	ObjectTerminal   ObjectType = "terminal"
	ObjectWindow     ObjectType = "window"
	ObjectApp        ObjectType = "app"
)

// AIEventKind discriminates the payload carried by an AIEvent. At most one
// of the corresponding fields on AIEvent is populated for a given Kind;
// scroll and text_selection events have no payload field of their own.
type AIEventKind string

const (
	AIEventKeystroke AIEventKind = "keystroke"
	AIEventClick     AIEventKind = "click"
	AIEventPageView  AIEventKind = "page_view"
	AIEventClipboard AIEventKind = "clipboard"
	AIEventSnapshot  AIEventKind = "content_snapshot"
	AIEventScroll    AIEventKind = "scroll"
	AIEventSelection AIEventKind = "text_selection"
)

// RawRange is an index range into a Batch's RawEvents slice, used instead
// of back-pointers so AI events and raw events never form a reference
// cycle (arena-and-index pattern: the batch is the arena).
type RawRange struct {
	Start int `json:"start"` // inclusive index into Batch.RawEvents
	End   int `json:"end"`   // exclusive
}

// AIEvent is a semantically grouped unit emitted into a batch, referencing
// its underlying raw events by index range rather than by pointer.
type AIEvent struct {
	Kind       AIEventKind `json:"kind"`
	Timestamp  time.Time   `json:"timestamp"`
	RawRefs    RawRange    `json:"raw_refs"`
	ObjectType ObjectType  `json:"object_type"`
	ObjectID   string      `json:"object_id"`

	TextInput *TextInputEvent  `json:"text_input,omitempty"`
	Click     *ClickTarget     `json:"click,omitempty"`
	PageView  *PageViewEvent   `json:"page_view,omitempty"`
	Clipboard *ClipboardEvent  `json:"clipboard,omitempty"`
	Snapshot  *ContentSnapshot `json:"content_snapshot,omitempty"`

	// Annotation carries the enricher's regex-derived content annotation
	// for text-bearing kinds (keystroke runs, clipboard content).
	Annotation *ContentAnnotation `json:"content_annotation,omitempty"`
}

// ClipboardEvent is the enriched form of a clipboard_change RawEvent.
type ClipboardEvent struct {
	Content       string      `json:"content"` // truncated to 1000 chars
	ContentType   ContentType `json:"content_type"`
	ContentLength int         `json:"content_length"`
	Truncated     bool        `json:"truncated"`
	ContainsURL   bool        `json:"contains_url"`
	ContainsEmail bool        `json:"contains_email"`
	WordCount     int         `json:"word_count"`
}

// ContentAnnotation is the enricher's regex-derived annotation attached to
// text-bearing payloads (keystroke runs, clipboard content).
type ContentAnnotation struct {
	Length      int  `json:"length"`
	HasCode     bool `json:"has_code"`
	HasURLs     bool `json:"has_urls"`
	IsMultiline bool `json:"is_multiline"`
	WordCount   int  `json:"word_count"`
}

// ContentSnapshot is the enriched form of a content_snapshot RawEvent.
type ContentSnapshot struct {
	App          string       `json:"app"`
	WindowTitle  string       `json:"window_title"`
	IsWeb        bool         `json:"is_web"`
	URL          string       `json:"url,omitempty"`
	Preview      string       `json:"preview"` // <= 2 KiB
	WordCount    int          `json:"word_count"`
	ElementCount int          `json:"element_count"`
	SnapshotType SnapshotType `json:"snapshot_type"`
}
