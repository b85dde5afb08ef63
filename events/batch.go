package events

import "time"

// AppCategory is the coarse activity bucket attached to app-focus events
// by the enricher's substring classifier.
type AppCategory string

const (
	CategoryCoding        AppCategory = "coding"
	CategoryBrowser       AppCategory = "browser"
	CategoryCommunication AppCategory = "communication"
	CategoryDesign        AppCategory = "design"
	CategoryProductivity  AppCategory = "productivity"
	CategoryEntertainment AppCategory = "entertainment"
	CategoryAI            AppCategory = "ai"
	CategoryOther         AppCategory = "other"
)

// OptimizationSummary reports what the token optimizer did to a batch's
// AI events. The raw events list is never touched by optimization.
type OptimizationSummary struct {
	InputCount       int     `json:"input_count"`
	OutputCount      int     `json:"output_count"`
	ReductionPercent float64 `json:"reduction_percent"`
	BytesBefore      int     `json:"bytes_before"`
	BytesAfter       int     `json:"bytes_after"`
}

// Batch is the unit the token optimizer and summarizer consume: a
// time/size-bounded cut of AI events plus the raw events they reference.
type Batch struct {
	BatchID             string              `json:"batch_id"`
	SessionID           string              `json:"session_id"`
	StartedAt           time.Time           `json:"started_at"`
	EndedAt             time.Time           `json:"ended_at"`
	Reason              FlushReason         `json:"reason"`
	RawEvents           []RawEvent          `json:"raw_events"`
	AIEvents            []AIEvent           `json:"ai_events"`
	OptimizationSummary OptimizationSummary `json:"optimization_summary"`
}
