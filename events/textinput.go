package events

import "time"

// FlushReason records why a TextInputEvent (or Batch) was closed.
type FlushReason string

const (
	FlushIdle          FlushReason = "idle"
	FlushPunctuation   FlushReason = "punctuation"
	FlushReturnKey     FlushReason = "return_key"
	FlushTab           FlushReason = "tab"
	FlushContextChange FlushReason = "context_change"
	FlushMaxLength     FlushReason = "max_length"
	FlushForce         FlushReason = "force"
	FlushInterval      FlushReason = "interval"
	FlushSizeCap       FlushReason = "size_cap"
	FlushSessionEnd    FlushReason = "session_end"
)

// TextInputEvent is the coalescer's output: a keystroke run folded into
// the text it produced.
type TextInputEvent struct {
	Text                string      `json:"text"`
	WordCount           int         `json:"word_count"`
	CharCount           int         `json:"char_count"`
	ContainsPunctuation bool        `json:"contains_punctuation"`
	App                 string      `json:"app"`
	WindowTitle         string      `json:"window_title"`
	StartTS             time.Time   `json:"start_ts"`
	EndTS               time.Time   `json:"end_ts"`
	FlushReason         FlushReason `json:"flush_reason"`
}
